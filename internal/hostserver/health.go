package hostserver

import (
	"net/http"
	"time"
)

// healthData is the payload behind GET /health and /health/ready, matching
// the teacher's handlers.HealthHandler shape (liveness vs readiness as
// separate probes so an orchestrator can distinguish "process is up" from
// "process can actually serve an invocation").
type healthData struct {
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// liveness answers "is the process alive" unconditionally: it never touches
// the VM or any collaborator, so it can't be dragged down by a stuck
// invocation.
func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(healthData{
		Uptime:  time.Since(s.startTime).String(),
		Version: Version,
	}))
}

// readiness additionally checks that the identity verifier (when configured)
// was constructed successfully; a host with a broken signing-key set should
// not be advertised as ready to accept invocations.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	if s.identityVerifier == nil && s.requireIdentity {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("identity verifier not configured"))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(healthData{
		Uptime:  time.Since(s.startTime).String(),
		Version: Version,
	}))
}

// Version is the host binary version string, set at build time by
// cmd/restatevm (mirrors the teacher's commands.Version ldflags injection).
var Version = "dev"
