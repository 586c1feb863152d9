// Package redis connects the gateway to the Redis instance shared by all gateway replicas.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"flightgate.dev/pkg/gateway/config"
)

const redisPingTimeout = 5 * time.Second

type Logger interface {
	Debug(args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// Redis is a connected client that logs every command at DEBUG level.
type Redis struct {
	*redis.Client
	logger Logger
}

// QueryLog is the DEBUG entry written for each command.
type QueryLog struct {
	Query    string `json:"query"`
	Duration int64  `json:"duration"`
	Args     any    `json:"args,omitempty"`
}

// NewClient connects to the Redis configured through REDIS_* keys. It returns an error when
// REDIS_HOST is unset or the server does not answer a PING.
func NewClient(c config.Config, logger Logger) (*Redis, error) {
	conf := getRedisConfig(c, logger)
	if conf.HostName == "" {
		return nil, errMissingHost
	}

	rc := redis.NewClient(conf.Options)
	r := &Redis{Client: rc, logger: logger}

	rc.AddHook(r)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()

		return nil, fmt.Errorf("could not connect to redis at %s: %w", conf.Options.Addr, err)
	}

	if err := redisotel.InstrumentTracing(rc); err != nil {
		logger.Errorf("could not instrument redis tracing: %v", err)
	}

	logger.Infof("connected to redis at %s", conf.Options.Addr)

	return r, nil
}

func (r *Redis) logQuery(start time.Time, query string, args ...any) {
	r.logger.Debug(QueryLog{
		Query:    query,
		Duration: time.Since(start).Microseconds(),
		Args:     args,
	})
}

func (*Redis) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (r *Redis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		r.logQuery(start, cmd.Name(), cmd.Args()...)

		return err
	}
}

func (r *Redis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		r.logQuery(start, "pipeline", cmds)

		return err
	}
}
