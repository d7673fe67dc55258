package httpadapter

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/couchcryptid/census-map-service/internal/domain"
)

type jobRequest struct {
	State    string `json:"state"`
	Variable string `json:"variable"`
}

type variableInfo struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// handleCreateJob accepts a JSON body or a form post.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body", Code: "bad_request"})
			return
		}
	} else {
		req.State = r.FormValue("state")
		req.Variable = r.FormValue("variable")
	}
	s.enqueue(w, r, req)
}

// handleEnqueuePath keeps the path-parameter route shape.
func (s *Server) handleEnqueuePath(w http.ResponseWriter, r *http.Request) {
	s.enqueue(w, r, jobRequest{State: r.PathValue("state"), Variable: r.PathValue("variable")})
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, req jobRequest) {
	desc, err := s.deps.Jobs.Enqueue(r.Context(), req.State, req.Variable)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, desc)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Jobs.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Results.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.ResultEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleVariables(w http.ResponseWriter, _ *http.Request) {
	keys := s.deps.Registry.Keys()
	out := make([]variableInfo, 0, len(keys))
	for _, k := range keys {
		spec, err := s.deps.Registry.Lookup(k)
		if err != nil {
			continue
		}
		out = append(out, variableInfo{Key: k, DisplayName: spec.DisplayName})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrMissingArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrQueueFull):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: domain.ErrorCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
