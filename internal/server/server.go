// Package server mounts the HTTP routes of the lead API on a goa muxer
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"

	"leadcrm/internal/config"
	"leadcrm/internal/services"
)

// Server holds the services behind the HTTP routes
type Server struct {
	cfg    *config.Config
	leads  *services.LeadService
	auth   *services.AuthService
	health *services.HealthService
	mux    goahttp.Muxer
}

// New builds the route table and returns the server
func New(cfg *config.Config, leads *services.LeadService, auth *services.AuthService, health *services.HealthService) *Server {
	s := &Server{
		cfg:    cfg,
		leads:  leads,
		auth:   auth,
		health: health,
		mux:    goahttp.NewMuxer(),
	}
	s.mount()
	return s
}

// route is one entry of the route table
type route struct {
	method  string
	path    string
	handler http.HandlerFunc
	public  bool
}

func (s *Server) routes() []route {
	return []route{
		{"POST", "/import", s.importLeads, false},
		{"GET", "/sample", s.downloadSample, true},
		{"GET", "/export", s.exportLeads, false},
		{"GET", "/dashboard-stats", s.dashboardStats, false},
		{"POST", "/create", s.createLead, false},
		{"GET", "/list", s.listLeads, false},
		{"GET", "/lead/{id}", s.getLead, false},
		{"PATCH", "/status/{id}", s.updateStatus, false},
		{"PUT", "/update/{id}", s.updateLead, false},
		{"DELETE", "/delete/{id}", s.deleteLead, false},
		{"GET", "/lead-summary", s.leadSummary, false},
		{"POST", "/bulk-delete", s.bulkDelete, false},
		{"PUT", "/bulk-update-status", s.bulkUpdateStatus, false},
		{"POST", "/register", s.register, true},
		{"POST", "/login", s.login, true},
	}
}

func (s *Server) mount() {
	requireAuth := services.JWTAuthMiddleware(s.auth, writeError)

	for _, rt := range s.routes() {
		h := http.Handler(rt.handler)
		if !rt.public {
			h = requireAuth(h)
		}
		s.mux.Handle(rt.method, s.cfg.App.BasePath+rt.path, h.ServeHTTP)
	}
	s.mux.Handle("GET", "/health", s.healthCheck)
	s.mux.Handle("GET", "/metrics", promhttp.Handler().ServeHTTP)
}

// Handler returns the routes wrapped with goa's request ID and request
// context middleware
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = middleware.PopulateRequestContext()(h)
	h = middleware.RequestID()(h)
	return h
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, s.health.Check(r.Context()))
}
