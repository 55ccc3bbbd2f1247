// Package api exposes the service over HTTP.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"CredBuddy/internal/service"
)

// Server is the HTTP API.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	svc        *service.Service
	log        *logrus.Logger
	startedAt  time.Time
}

// NewServer creates a server bound to addr.
func NewServer(addr string, svc *service.Service, log *logrus.Logger) *Server {
	s := &Server{
		svc:       svc,
		log:       log,
		startedAt: time.Now(),
	}

	r := mux.NewRouter()
	r.Use(withRequestID, withAccessLog(log))
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/users", s.handleListUsers).Methods(http.MethodGet)

	users := r.PathPrefix("/api/users/{id}").Subrouter()
	users.HandleFunc("/entries", s.handleSubmitEntry).Methods(http.MethodPost)
	users.HandleFunc("/entries", s.handleListEntries).Methods(http.MethodGet)
	users.HandleFunc("/cash-estimate", s.handleCashEstimate).Methods(http.MethodPost)
	users.HandleFunc("/score", s.handleRecompute).Methods(http.MethodPost)
	users.HandleFunc("/score", s.handleExplain).Methods(http.MethodGet)
	users.HandleFunc("/score/history", s.handleHistory).Methods(http.MethodGet)

	r.HandleFunc("/api/admin/dashboard", s.handleDashboard).Methods(http.MethodGet)

	s.router = r
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.log.WithField("addr", s.httpServer.Addr).Info("api server listening")
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("api server stopped")
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
