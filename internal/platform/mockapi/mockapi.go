// A mock of the paywall platform for development and testing purposes.
// It serves the same REST surface the real backend does, keeps state in
// memory, and lets callers simulate the out-of-band bot confirmation
// that flips a project to connected.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oneclicksub/creatorctl/internal/models"
)

// Server is an in-memory stand-in for the platform backend.
type Server struct {
	token       string
	botUsername string

	mu            sync.Mutex
	nextProjectID int64
	nextPlanID    int64
	projects      map[int64]*models.Project
	plans         map[int64][]*models.Plan
}

// New creates a mock platform that accepts the given bearer token.
func New(token string) *Server {
	return &Server{
		token:         token,
		botUsername:   "oneclicksub_bot",
		nextProjectID: 1,
		nextPlanID:    1,
		projects:      make(map[int64]*models.Project),
		plans:         make(map[int64][]*models.Plan),
	}
}

// Router sets up and returns the mock API router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/projects/", s.handleCreateProject)
		r.Get("/projects/", s.handleListProjects)
		r.Get("/projects/{projectID}", s.handleGetProject)
		r.Post("/projects/{projectID}/connect-link", s.handleConnectLink)

		r.Post("/plans/", s.handleCreatePlan)
		r.Get("/plans/project/{projectID}", s.handleListPlans)
	})

	// Simulator endpoint: what the Telegram bot reports when it has
	// been added as an admin to the channel.
	r.Post("/_simulator/projects/{projectID}/connected", s.handleSimulateConnected)

	return r
}

// authMiddleware enforces the bearer credential the way the real
// backend does: a missing or wrong token yields 401 with a detail body.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.token {
			respondDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var payload models.ProjectCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	project := &models.Project{
		ID:     s.nextProjectID,
		UserID: 1,
		Title:  payload.Title,
		Active: payload.Active,
		Settings: &models.ProjectSettings{
			Status:         "pending",
			ConnectionCode: fmt.Sprintf("code-%d", s.nextProjectID),
		},
	}
	s.nextProjectID++
	s.projects[project.ID] = project
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	projects := make([]*models.Project, 0, len(s.projects))
	for id := int64(1); id < s.nextProjectID; id++ {
		if p, ok := s.projects[id]; ok {
			projects = append(projects, cloneProject(p))
		}
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.lookup(chi.URLParam(r, "projectID"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

func (s *Server) handleConnectLink(w http.ResponseWriter, r *http.Request) {
	project, ok := s.lookup(chi.URLParam(r, "projectID"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Project not found")
		return
	}

	link := models.ConnectLink{
		BotLink: fmt.Sprintf("https://t.me/%s?start=connect_%s", s.botUsername, project.Settings.ConnectionCode),
	}
	respondJSON(w, http.StatusOK, link)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var payload models.PlanCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[payload.ProjectID]; !ok {
		respondDetail(w, http.StatusBadRequest, "Project not found")
		return
	}
	if payload.Price <= 0 {
		respondDetail(w, http.StatusUnprocessableEntity, "Price must be greater than zero")
		return
	}
	if payload.DurationDays <= 0 {
		respondDetail(w, http.StatusUnprocessableEntity, "Duration must be at least one day")
		return
	}

	plan := &models.Plan{
		ID:           s.nextPlanID,
		ProjectID:    payload.ProjectID,
		Name:         payload.Name,
		Price:        payload.Price,
		Currency:     payload.Currency,
		DurationDays: payload.DurationDays,
		Active:       payload.Active,
	}
	s.nextPlanID++
	s.plans[payload.ProjectID] = append(s.plans[payload.ProjectID], plan)

	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "Invalid project id")
		return
	}

	s.mu.Lock()
	plans := make([]*models.Plan, 0)
	for _, p := range s.plans[id] {
		if p.Active {
			plans = append(plans, p)
		}
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, plans)
}

func (s *Server) handleSimulateConnected(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "Invalid project id")
		return
	}
	if !s.MarkConnected(id, -100_000_000_000-id) {
		respondDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// MarkConnected simulates the bot having been added as an admin to the
// channel: the project gains its channel id and the connected status.
func (s *Server) MarkConnected(projectID, channelID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[projectID]
	if !ok {
		return false
	}
	project.TelegramChannelID = &channelID
	project.Settings.Status = models.StatusConnected
	return true
}

// lookup returns a private copy of the project. MarkConnected mutates
// the stored structs, so handlers must never marshal them unlocked.
func (s *Server) lookup(rawID string) (*models.Project, bool) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, false
	}
	return cloneProject(project), true
}

func cloneProject(p *models.Project) *models.Project {
	clone := *p
	if p.Settings != nil {
		settings := *p.Settings
		clone.Settings = &settings
	}
	if p.TelegramChannelID != nil {
		id := *p.TelegramChannelID
		clone.TelegramChannelID = &id
	}
	return &clone
}

// respondJSON writes a JSON response with the given status code and payload.
func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "Failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondDetail writes a FastAPI-style error body: {"detail": ...}.
func respondDetail(w http.ResponseWriter, code int, detail string) {
	respondJSON(w, code, map[string]string{"detail": detail})
}
