package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/approval"
	"github.com/hochfrequenz/content-pipeline/internal/domain"
	"github.com/hochfrequenz/content-pipeline/internal/store"
)

// ApprovalResponse is the API shape of one approval request
type ApprovalResponse struct {
	ID         string  `json:"id"`
	Platform   string  `json:"platform"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	ExpiresAt  string  `json:"expires_at"`
	DecidedBy  string  `json:"decided_by,omitempty"`
	DecidedAt  *string `json:"decided_at,omitempty"`
	EditedText string  `json:"edited_text,omitempty"`
	Iterations int     `json:"iterations"`
}

// StatusResponse is the API shape of overall pipeline status
type StatusResponse struct {
	Pending             int     `json:"pending"`
	Approved            int     `json:"approved"`
	Rejected            int     `json:"rejected"`
	Edited              int     `json:"edited"`
	Timeout             int     `json:"timeout"`
	Paused              bool    `json:"paused"`
	PausedBy            string  `json:"paused_by,omitempty"`
	TotalRuns           int     `json:"total_runs"`
	TotalEvaluations    int     `json:"total_evaluations"`
	FallbackEvaluations int     `json:"fallback_evaluations"`
	AvgScore            float64 `json:"avg_score"`
}

// ResolveRequest is the body of a reviewer decision
type ResolveRequest struct {
	Status     string `json:"status"`
	Actor      string `json:"actor"`
	EditedText string `json:"edited_text,omitempty"`
}

// CandidateResponse is the API shape of one run history record
type CandidateResponse struct {
	RunID          string  `json:"run_id"`
	Topic          string  `json:"topic"`
	Platform       string  `json:"platform"`
	Text           string  `json:"text"`
	Score          float64 `json:"score"`
	Improved       bool    `json:"improved"`
	ApprovalStatus string  `json:"approval_status"`
	CreatedAt      string  `json:"created_at"`
}

func approvalToResponse(req *domain.ApprovalRequest) ApprovalResponse {
	resp := ApprovalResponse{
		ID:         req.ID,
		Platform:   req.Platform,
		Text:       req.Content.Text,
		Score:      req.Score,
		Status:     string(req.Status),
		CreatedAt:  req.CreatedAt.Format(time.RFC3339),
		ExpiresAt:  req.ExpiresAt.Format(time.RFC3339),
		DecidedBy:  req.DecidedBy,
		EditedText: req.EditedText,
		Iterations: req.Content.Iteration,
	}
	if req.DecidedAt != nil {
		t := req.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &t
	}
	return resp
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		counts, err := s.store.CountApprovalsByStatus()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		control, err := s.store.GetControlState()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		status := StatusResponse{
			Pending:  counts[domain.ApprovalPending],
			Approved: counts[domain.ApprovalApproved],
			Rejected: counts[domain.ApprovalRejected],
			Edited:   counts[domain.ApprovalEdited],
			Timeout:  counts[domain.ApprovalTimeout],
			Paused:   control.Paused(),
		}
		if control.Paused() {
			status.PausedBy = control.UpdatedBy
		}

		if s.obs != nil {
			m := s.obs.GetMetrics()
			status.TotalRuns = m.TotalRuns
			status.TotalEvaluations = m.TotalEvaluations
			status.FallbackEvaluations = m.FallbackEvaluations
			status.AvgScore = m.AvgScore
		}

		writeJSON(w, status)
	}
}

func (s *Server) listApprovalsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		opts := store.ListOptions{
			Status:   domain.ApprovalStatus(r.URL.Query().Get("status")),
			Platform: r.URL.Query().Get("platform"),
		}

		approvals, err := s.store.ListApprovals(opts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		responses := make([]ApprovalResponse, len(approvals))
		for i, req := range approvals {
			responses[i] = approvalToResponse(req)
		}

		writeJSON(w, responses)
	}
}

// approvalHandler serves /api/approvals/{id} and /api/approvals/{id}/resolve
func (s *Server) approvalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/approvals/")
		if path == "" {
			writeError(w, http.StatusBadRequest, "approval ID required")
			return
		}

		if id, found := strings.CutSuffix(path, "/resolve"); found {
			s.resolveApproval(w, r, id)
			return
		}

		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		req, err := s.store.GetApproval(path)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "approval not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, approvalToResponse(req))
	}
}

func (s *Server) resolveApproval(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Actor == "" {
		body.Actor = "web"
	}

	err := s.resolver.Resolve(id, domain.ApprovalStatus(body.Status), body.Actor, body.EditedText)
	if err != nil {
		if errors.Is(err, approval.ErrAlreadyResolved) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := s.store.GetApproval(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := approvalToResponse(req)
	s.Broadcast(SSEEvent{Type: "approval_update", Data: resp})
	writeJSON(w, resp)
}

func (s *Server) listCandidatesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		recs, err := s.store.ListCandidates(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		responses := make([]CandidateResponse, len(recs))
		for i, rec := range recs {
			responses[i] = CandidateResponse{
				RunID:          rec.RunID,
				Topic:          rec.Topic,
				Platform:       rec.Platform,
				Text:           rec.Text,
				Score:          rec.Score,
				Improved:       rec.Improved,
				ApprovalStatus: string(rec.ApprovalStatus),
				CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
			}
		}

		writeJSON(w, responses)
	}
}

func (s *Server) controlHandler(pause bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		actor := r.URL.Query().Get("actor")
		if actor == "" {
			actor = "web"
		}

		var err error
		if pause {
			err = s.control.Pause(actor)
		} else {
			err = s.control.Resume(actor)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		state := "active"
		if pause {
			state = "paused"
		}
		s.Broadcast(SSEEvent{Type: "control_update", Data: map[string]string{"state": state, "actor": actor}})
		writeJSON(w, map[string]string{"state": state})
	}
}
