package hostserver

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/restatevm/sharedcore/internal/logger"
	"github.com/restatevm/sharedcore/internal/protocol/wire"
	"github.com/restatevm/sharedcore/internal/telemetry"
	"github.com/restatevm/sharedcore/internal/vm"
	"github.com/restatevm/sharedcore/internal/vmerrors"
)

const headerContentType = "Content-Type"

// invokeHandler drives one invocation attempt end to end: negotiate the
// protocol version, verify request identity, feed the request body into a
// fresh vm.VM, let Handler run user code against it, and write whatever the
// VM produced back to the response (spec.md §6's exit conditions: Ended,
// Suspended and Errored all end the HTTP exchange with status 200, the
// framed message payload is what distinguishes them).
func (s *Server) invokeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contentType := r.Header.Get(headerContentType)
	if contentType == "" {
		writeProblem(w, http.StatusUnsupportedMediaType, "Unsupported Media Type", vmerrors.ErrMissingContentType.Message)
		return
	}
	version, err := wire.ParseVersion(contentType)
	if err != nil {
		writeProblem(w, http.StatusUnsupportedMediaType, "Unsupported Media Type", err.Error())
		return
	}

	if s.requireIdentity && r.Header.Get("x-restate-jwt-v1") == "" {
		writeProblem(w, http.StatusForbidden, "Forbidden", "missing header: x-restate-jwt-v1")
		return
	}
	if s.identityVerifier != nil {
		if err := s.identityVerifier.VerifyIdentity(r.Header, r.URL.Path); err != nil {
			writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
			return
		}
	} else if s.requireIdentity {
		writeProblem(w, http.StatusForbidden, "Forbidden", "request identity verification required but no verifier configured")
		return
	}

	service := chi.URLParam(r, "service")
	handlerName := chi.URLParam(r, "handler")

	ctx, span := telemetry.StartInvocationSpan(ctx, "", "")
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.State(vm.StateWaitingStart.String()))

	s.metrics.IncActiveInvocations()
	defer s.metrics.DecActiveInvocations()
	start := time.Now()
	defer func() { s.metrics.ObserveInvocationDuration(time.Since(start)) }()

	opts := vm.Options{ImplicitCancellation: s.implicitCancellation}
	if policy := s.retryPolicy; policy != nil {
		opts.RetryPolicy = policy
	}
	machine := vm.New(opts)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "failed to read request body")
		return
	}
	if err := machine.NotifyInput(body); err != nil {
		logger.Warn("invocation failed during NotifyInput",
			logger.Event("notify_input_failed"), logger.Err(err),
			"service", service, "handler", handlerName)
	}
	if err := machine.NotifyInputClosed(); err != nil {
		logger.Debug("invocation latched error on input close", logger.Err(err))
	}

	if !machine.IsEnded() && !machine.IsSuspended() {
		if herr := s.handler.Handle(ctx, machine); herr != nil && !vmerrors.IsSuspendedError(herr) {
			logger.Warn("handler returned error", logger.Err(herr), "service", service, "handler", handlerName)
		}
	}

	if machine.IsSuspended() {
		s.metrics.RecordSuspension()
	}
	if latched := machine.LatchedError(); latched != nil && latched.Code == vmerrors.CodeJournalMismatch {
		s.metrics.RecordReplayMismatch()
	}

	out := machine.TakeOutput()
	w.Header().Set(headerContentType, version.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Buffer)
}
