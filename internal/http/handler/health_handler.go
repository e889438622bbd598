package handler

import (
	"net/http"
)

// HealthCheckHandler returns HTTP 200 OK. Used by Docker health checks and
// external supervisors.
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
