package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"leadcrm/internal/domain"
	"leadcrm/internal/services"
)

const (
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	multipartMemory  = 8 << 20
	uploadFieldName  = "file"
	sampleFileName   = "sample-leads.xlsx"
	exportFilePrefix = "leads-"
)

// leadResponse wraps a single lead with a confirmation message
type leadResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Lead    *domain.Lead `json:"lead"`
}

type listResponse struct {
	Success bool `json:"success"`
	*services.LeadListResult
}

type dashboardResponse struct {
	Success bool `json:"success"`
	*services.DashboardStats
}

type summaryResponse struct {
	Success bool `json:"success"`
	*services.LeadSummary
}

type importResponse struct {
	Success bool `json:"success"`
	*services.ImportResult
}

type bulkResponse struct {
	Success bool `json:"success"`
	*services.BulkResult
}

type statusRequest struct {
	LeadStatus string `json:"leadStatus"`
}

// leadRefs decodes a JSON array of numeric ids and idNo strings
type leadRefs []string

func (l *leadRefs) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	refs := make(leadRefs, 0, len(raw))
	for _, v := range raw {
		switch ref := v.(type) {
		case string:
			refs = append(refs, ref)
		case float64:
			if ref < 0 || ref != math.Trunc(ref) {
				return fmt.Errorf("invalid lead id %v", ref)
			}
			refs = append(refs, strconv.FormatFloat(ref, 'f', -1, 64))
		default:
			return fmt.Errorf("lead ids must be numbers or idNo strings, got %T", v)
		}
	}
	*l = refs
	return nil
}

type bulkDeleteRequest struct {
	IDs leadRefs `json:"ids"`
}

type bulkStatusRequest struct {
	IDs    leadRefs `json:"ids"`
	Status string   `json:"status"`
}

func (s *Server) importLeads(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.Leads.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, services.LeadValidation("Uploaded file exceeds %d MB", s.cfg.Leads.MaxUploadMB))
			return
		}
		writeError(w, r, services.LeadValidation("No file uploaded"))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Printf("[IMPORT] Warning: failed to remove multipart files: %v", err)
		}
	}()

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		writeError(w, r, services.LeadValidation("No file uploaded"))
		return
	}
	defer file.Close()

	result, err := s.leads.Import(r.Context(), filepath.Base(header.Filename), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, importResponse{Success: true, ImportResult: result})
}

func (s *Server) downloadSample(w http.ResponseWriter, r *http.Request) {
	path, err := s.leads.EnsureSample()
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sampleFileName))
	http.ServeFile(w, r, path)
}

func (s *Server) exportLeads(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.leads.Export(r.Context(), listPayload(r.URL.Query()), &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := exportFilePrefix + time.Now().Format("20060102-150405") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Total-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[LEAD] Export write failed: %v", err)
	}
}

func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.leads.DashboardStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, dashboardResponse{Success: true, DashboardStats: stats})
}

func (s *Server) createLead(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	lead, err := s.leads.Create(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, leadResponse{Success: true, Message: "Lead created successfully!", Lead: lead})
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	result, err := s.leads.List(r.Context(), listPayload(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, listResponse{Success: true, LeadListResult: result})
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.Get(r.Context(), s.mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, leadResponse{Success: true, Lead: lead})
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	lead, err := s.leads.UpdateStatus(r.Context(), s.mux.Vars(r)["id"], body.LeadStatus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, lead)
}

func (s *Server) updateLead(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	lead, err := s.leads.Update(r.Context(), s.mux.Vars(r)["id"], body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, leadResponse{Success: true, Message: "Lead updated successfully!", Lead: lead})
}

func (s *Server) deleteLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.Delete(r.Context(), s.mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, leadResponse{Success: true, Message: "Lead deleted successfully", Lead: lead})
}

func (s *Server) leadSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.leads.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, summaryResponse{Success: true, LeadSummary: summary})
}

func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var body bulkDeleteRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.leads.BulkDelete(r.Context(), body.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, bulkResponse{Success: true, BulkResult: result})
}

func (s *Server) bulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body bulkStatusRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.leads.BulkUpdateStatus(r.Context(), body.IDs, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, bulkResponse{Success: true, BulkResult: result})
}

// listPayload reads list and export filters from the query string.
// Non-numeric page and limit values fall back to their defaults.
func listPayload(q url.Values) services.ListLeadsPayload {
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return services.ListLeadsPayload{
		Page:       page,
		Limit:      limit,
		Search:     q.Get("search"),
		LeadStatus: q.Get("leadStatus"),
		Industry:   q.Get("industry"),
		LeadType:   q.Get("leadType"),
		LeadSource: q.Get("leadSource"),
		AEOStatus:  q.Get("AEOStatus"),
		RCMCPanel:  q.Get("RCMCPanel"),
	}
}
