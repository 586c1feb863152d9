package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"

	"flightgate.dev/pkg/gateway/version"
)

// Logger represents a logging interface.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Log(args ...any)
	Logf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Notice(args ...any)
	Noticef(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	ChangeLevel(level Level)
}

// PrettyPrint is implemented by messages that render themselves on a terminal.
type PrettyPrint interface {
	PrettyPrint(writer io.Writer)
}

// Entry is a structured line produced by a gateway component, such as the access line of an
// inbound request or the line of a single upstream attempt. Source names the component and is
// written as the "source" field.
type Entry interface {
	PrettyPrint
	Source() string
}

// record is the JSON shape of one line.
type record struct {
	Level          Level     `json:"level"`
	Time           time.Time `json:"time"`
	Source         string    `json:"source,omitempty"`
	Message        any       `json:"message"`
	TraceID        string    `json:"trace_id,omitempty"`
	GatewayVersion string    `json:"gatewayVersion"`
}

// exit is swapped in tests so Fatal can be exercised.
var exit = os.Exit

type logger struct {
	level  atomic.Int32
	stdout io.Writer
	stderr io.Writer

	// mu keeps lines from concurrent goroutines whole.
	mu     sync.Mutex
	render func(w io.Writer, r *record)
}

// NewLogger creates a new logger instance with the specified logging level. Lines are JSON
// unless stdout is a terminal.
func NewLogger(level Level) Logger {
	return newLogger(level, os.Stdout, os.Stderr)
}

func newLogger(level Level, stdout, stderr io.Writer) *logger {
	l := &logger{stdout: stdout, stderr: stderr, render: renderJSON}
	l.level.Store(int32(level))

	if isTerminal(stdout) {
		l.render = renderTerminal
	}

	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

func (l *logger) ChangeLevel(level Level) { l.level.Store(int32(level)) }

func (l *logger) Debug(args ...any)                  { l.write(DEBUG, "", args) }
func (l *logger) Debugf(format string, args ...any)  { l.write(DEBUG, format, args) }
func (l *logger) Log(args ...any)                    { l.write(INFO, "", args) }
func (l *logger) Logf(format string, args ...any)    { l.write(INFO, format, args) }
func (l *logger) Info(args ...any)                   { l.write(INFO, "", args) }
func (l *logger) Infof(format string, args ...any)   { l.write(INFO, format, args) }
func (l *logger) Notice(args ...any)                 { l.write(NOTICE, "", args) }
func (l *logger) Noticef(format string, args ...any) { l.write(NOTICE, format, args) }
func (l *logger) Warn(args ...any)                   { l.write(WARN, "", args) }
func (l *logger) Warnf(format string, args ...any)   { l.write(WARN, format, args) }
func (l *logger) Error(args ...any)                  { l.write(ERROR, "", args) }
func (l *logger) Errorf(format string, args ...any)  { l.write(ERROR, format, args) }

// Fatal logs and terminates the gateway with status 1.
func (l *logger) Fatal(args ...any) {
	l.write(FATAL, "", args)
	exit(1)
}

func (l *logger) Fatalf(format string, args ...any) {
	l.write(FATAL, format, args)
	exit(1)
}

func (l *logger) write(level Level, format string, args []any) {
	if int32(level) < l.level.Load() {
		return
	}

	r := newRecord(level, format, args)

	w := l.stdout
	if level >= ERROR {
		w = l.stderr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.render(w, r)
}

func newRecord(level Level, format string, args []any) *record {
	traceID, args := splitTraceID(args)

	r := &record{
		Level:          level,
		Time:           time.Now(),
		Message:        compose(format, args),
		TraceID:        traceID,
		GatewayVersion: version.Gateway,
	}

	if e, ok := r.Message.(Entry); ok {
		r.Source = e.Source()
	}

	return r
}

// compose formats the message; a single argument without a format keeps its structure in JSON.
func compose(format string, args []any) any {
	switch {
	case format != "":
		return fmt.Sprintf(format, args...)
	case len(args) == 1:
		return args[0]
	default:
		return args
	}
}

func renderJSON(w io.Writer, r *record) {
	_ = json.NewEncoder(w).Encode(r)
}

func renderTerminal(w io.Writer, r *record) {
	fmt.Fprintf(w, "\u001B[38;5;%dm%s\u001B[0m [%s]", r.Level.color(), r.Level.String()[0:4], r.Time.Format(time.TimeOnly))

	if r.TraceID != "" {
		fmt.Fprintf(w, " \u001B[38;5;8m%s\u001B[0m", r.TraceID)
	}

	if p, ok := r.Message.(PrettyPrint); ok {
		fmt.Fprint(w, " ")
		p.PrettyPrint(w)

		return
	}

	fmt.Fprintf(w, " %v\n", r.Message)
}

// LogLevelResponder is implemented by errors that want to be logged at a level other than ERROR.
type LogLevelResponder interface {
	LogLevel() Level
}

// GetLogLevelForError returns the level of the first error in err's chain implementing
// [LogLevelResponder], ERROR when there is none.
func GetLogLevelForError(err error) Level {
	var responder LogLevelResponder
	if errors.As(err, &responder) {
		return responder.LogLevel()
	}

	return ERROR
}

// splitTraceID removes the trace ID marker added by ContextLogger from args.
func splitTraceID(args []any) (traceID string, rest []any) {
	rest = make([]any, 0, len(args))

	for _, arg := range args {
		if m, ok := arg.(map[string]any); ok && traceID == "" {
			if id, found := m[traceIDKey].(string); found {
				traceID = id

				continue
			}
		}

		rest = append(rest, arg)
	}

	return traceID, rest
}
