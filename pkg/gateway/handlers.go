package gateway

import (
	"net/http"

	gatewayHTTP "flightgate.dev/pkg/gateway/http"
)

func aliveHandler(w http.ResponseWriter, r *http.Request) {
	gatewayHTTP.NewResponder(w, r.Method).Respond(map[string]string{"status": "UP"}, nil)
}

func (a *App) gatewayHealthHandler(w http.ResponseWriter, r *http.Request) {
	gatewayHTTP.NewResponder(w, r.Method).Respond(a.health.Gateway(), nil)
}

// servicesHealthHandler always answers 200; the state of every service is in the body.
func (a *App) servicesHealthHandler(w http.ResponseWriter, r *http.Request) {
	gatewayHTTP.NewResponder(w, r.Method).Respond(a.health.CheckAll(r.Context()), nil)
}
