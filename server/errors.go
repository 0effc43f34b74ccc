package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ordo-ai/agentgraph"
	"github.com/ordo-ai/agentgraph/agent"
	"github.com/ordo-ai/agentgraph/runlog"
)

// apiError is an error with an HTTP status.
type apiError struct {
	Status  int
	Message string
	Err     error
}

func (e *apiError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *apiError) Unwrap() error { return e.Err }

// toAPIError maps domain errors to statuses.
func toAPIError(err error) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, agentgraph.ErrEmptyMessage):
		return &apiError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.Is(err, agent.ErrUnknownAgent):
		return &apiError{Status: http.StatusNotFound, Message: err.Error(), Err: err}
	case errors.Is(err, runlog.ErrNotFound):
		return &apiError{Status: http.StatusNotFound, Message: "job not found", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &apiError{Status: http.StatusGatewayTimeout, Message: "run timed out", Err: err}
	default:
		return &apiError{Status: http.StatusInternalServerError, Message: err.Error(), Err: err}
	}
}

func writeError(w http.ResponseWriter, err error) {
	ae := toAPIError(err)
	writeJSON(w, ae.Status, map[string]string{"error": ae.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
