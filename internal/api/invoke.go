package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nerrad567/gridctl/internal/controller"
	"github.com/nerrad567/gridctl/internal/history"
)

// InvokeRequest is the body of POST /api/v1/invoke.
type InvokeRequest struct {
	Argument string `json:"argument"`
}

// InvokeResponse carries the invocation result and, on failure, the error.
type InvokeResponse struct {
	Result controller.Result `json:"result"`
	Error  *Error            `json:"error,omitempty"`
}

// handleInvoke runs one invocation through the host. An empty argument is
// the default status update.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.host.Invoke(r.Context(), req.Argument)
	if err != nil {
		status, code := invokeStatus(err)
		writeJSON(w, status, InvokeResponse{
			Result: result,
			Error:  &Error{Status: status, Code: code, Message: err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, InvokeResponse{Result: result})
}

// handleStatus returns the most recent invocation.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	last, ok := s.host.Last()
	if !ok {
		writeNotFound(w, "no invocation has run yet")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// handleListInvocations pages through the invocation history, newest first.
func (s *Server) handleListInvocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := history.Filter{
		Command: q.Get("command"),
		Source:  q.Get("source"),
	}

	var err error
	if v := q.Get("failed"); v != "" {
		failed, parseErr := strconv.ParseBool(v)
		if parseErr != nil {
			writeBadRequest(w, "failed must be true or false")
			return
		}
		filter.Failed = &failed
	}
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing invocations failed", "error", err)
		writeInternalError(w, "failed to list invocations")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
