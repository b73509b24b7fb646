package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepstage/prepstage/internal/interview"
	"github.com/prepstage/prepstage/internal/jobdesc"
	"github.com/prepstage/prepstage/internal/report"
	"github.com/prepstage/prepstage/internal/session"
	"github.com/prepstage/prepstage/internal/storage"
)

// AppDeps holds everything the HTTP surface needs. UserID identifies the
// single local user all requests act as.
type AppDeps struct {
	Store      *storage.Store
	Interviews *interview.Service
	Sessions   *session.Manager
	Reports    *report.Builder
	UserID     string
	Token      string
	HTTPClient *http.Client
}

// NewAppHandler builds the authenticated API router. /health stays open so
// the CLI can probe a running server without credentials.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/interviews", handleCreateInterview(deps))
		r.Get("/interviews", handleDashboard(deps))
		r.Get("/interviews/{id}", handleGetInterview(deps))
		r.Put("/interviews/{id}", handleUpdateInterview(deps))
		r.Delete("/interviews/{id}", handleDeleteInterview(deps))
		r.Get("/interviews/{id}/report", handleInterviewReport(deps))

		r.Post("/sessions", handleStartSession(deps))
		r.Get("/sessions/{id}", handleSessionStatus(deps))
		r.Delete("/sessions/{id}", handleCloseSession(deps))
		r.Post("/sessions/{id}/record", handleRecord(deps))
		r.Post("/sessions/{id}/fragments", handleFragments(deps))
		r.Post("/sessions/{id}/stop", handleStopRecording(deps))
		r.Post("/sessions/{id}/retry", handleRetry(deps))
		r.Post("/sessions/{id}/save", handleRequestSave(deps))
		r.Post("/sessions/{id}/save/confirm", handleConfirmSave(deps))
		r.Delete("/sessions/{id}/save", handleCancelSave(deps))
		r.Delete("/sessions/{id}/answer", handleDeleteAnswer(deps))
		r.Post("/sessions/{id}/frames", handleFrame(deps))
		r.Get("/sessions/{id}/overlay", handleOverlay(deps))
		r.Post("/sessions/{id}/webcam", handleWebcam(deps))
	})

	return r
}

// InterviewRequest is the create/update payload. Description may be supplied
// inline or resolved from a job-posting URL.
type InterviewRequest struct {
	Position        string   `json:"position"`
	Description     string   `json:"description"`
	DescriptionURL  string   `json:"descriptionUrl"`
	ExperienceYears int      `json:"experienceYears"`
	TechStack       string   `json:"techStack"`
	Sections        []string `json:"sections"`
}

func (req *InterviewRequest) job() interview.JobDetails {
	return interview.JobDetails{
		Position:        req.Position,
		Description:     req.Description,
		ExperienceYears: req.ExperienceYears,
		TechStack:       req.TechStack,
	}
}

func (req *InterviewRequest) resolve(r *http.Request, deps AppDeps) error {
	if req.DescriptionURL == "" || req.Description != "" {
		return nil
	}
	text, err := jobdesc.FromURL(r.Context(), deps.HTTPClient, req.DescriptionURL)
	if err != nil {
		return err
	}
	req.Description = text
	return nil
}

func parseSections(names []string) ([]interview.SectionType, error) {
	types := make([]interview.SectionType, 0, len(names))
	for _, name := range names {
		t, err := interview.ParseSectionType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func handleCreateInterview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req InterviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Position == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "position is required")
			return
		}
		types, err := parseSections(req.Sections)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err := req.resolve(r, deps); err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "resolving job posting: %v", err)
			return
		}

		iv, err := deps.Interviews.Create(r.Context(), deps.UserID, req.job(), types)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "generating interview: %v", err)
			return
		}
		writeJSON(w, iv)
	}
}

func handleDashboard(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := deps.Reports.Dashboard(r.Context(), deps.UserID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "building dashboard: %v", err)
			return
		}
		if entries == nil {
			entries = []report.DashboardEntry{}
		}
		writeJSON(w, entries)
	}
}

func handleGetInterview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iv, err := deps.Interviews.Get(chi.URLParam(r, "id"), deps.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, iv)
	}
}

func handleUpdateInterview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req InterviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := req.resolve(r, deps); err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "resolving job posting: %v", err)
			return
		}

		iv, err := deps.Interviews.Update(r.Context(), chi.URLParam(r, "id"), deps.UserID, req.job())
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, interview.ErrNotOwner) {
			writeDomainError(w, err)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "regenerating interview: %v", err)
			return
		}
		writeJSON(w, iv)
	}
}

func handleDeleteInterview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Interviews.Delete(chi.URLParam(r, "id"), deps.UserID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

func handleInterviewReport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := deps.Reports.Interview(chi.URLParam(r, "id"), deps.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, rep)
	}
}
