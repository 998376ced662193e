package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
	"github.com/hochfrequenz/content-pipeline/internal/observer"
	"github.com/hochfrequenz/content-pipeline/internal/store"
)

// Store is the persistence surface the API reads and writes
type Store interface {
	ListApprovals(opts store.ListOptions) ([]*domain.ApprovalRequest, error)
	GetApproval(id string) (*domain.ApprovalRequest, error)
	CountApprovalsByStatus() (map[domain.ApprovalStatus]int, error)
	GetControlState() (domain.PipelineControlState, error)
	ListCandidates(limit int) ([]store.CandidateRecord, error)
}

// Resolver applies reviewer decisions. Implemented by the approval machine.
type Resolver interface {
	Resolve(id string, status domain.ApprovalStatus, actor, editedText string) error
}

// Controller flips the pipeline pause switch
type Controller interface {
	Pause(actor string) error
	Resume(actor string) error
}

// Server is the HTTP API for the review dashboard
type Server struct {
	store    Store
	resolver Resolver
	control  Controller
	obs      *observer.Observer
	addr     string
	mux      *http.ServeMux
	sseHub   *SSEHub
	log      *slog.Logger
}

// NewServer creates the API server
func NewServer(st Store, resolver Resolver, control Controller, obs *observer.Observer, addr string, log *slog.Logger) *Server {
	s := &Server{
		store:    st,
		resolver: resolver,
		control:  control,
		obs:      obs,
		addr:     addr,
		mux:      http.NewServeMux(),
		sseHub:   NewSSEHub(),
		log:      log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/approvals", s.listApprovalsHandler())
	s.mux.HandleFunc("/api/approvals/", s.approvalHandler())
	s.mux.HandleFunc("/api/candidates", s.listCandidatesHandler())
	s.mux.HandleFunc("/api/control/pause", s.controlHandler(true))
	s.mux.HandleFunc("/api/control/resume", s.controlHandler(false))
	s.mux.HandleFunc("/api/events", s.sseHandler())
}

// Handler exposes the mux for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP server
func (s *Server) Start() error {
	go s.sseHub.Run()
	s.log.Info("api server listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}

// Broadcast sends an event to all SSE clients
func (s *Server) Broadcast(event SSEEvent) {
	s.sseHub.Broadcast(event)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
