// Package api exposes the management HTTP surface: agent administration,
// controller start/stop and manual triggers.
package api

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/halcyard/botfarm/internal/bot"
	"github.com/halcyard/botfarm/internal/content"
	"github.com/halcyard/botfarm/internal/cycle"
)

// AgentStore is the slice of the persistence layer the handlers need.
type AgentStore interface {
	ListAgents(ctx context.Context) ([]*bot.Agent, error)
	GetAgent(ctx context.Context, id string) (*bot.Agent, error)
	SaveAgent(ctx context.Context, a *bot.Agent) error
	SetAgentStatus(ctx context.Context, id string, status bot.Status) error
	DeleteAgent(ctx context.Context, id string) error
	AddSchedule(ctx context.Context, r *bot.ScheduleRule) error
	SchedulesFor(ctx context.Context, agentID string) ([]bot.ScheduleRule, error)
	DeleteSchedule(ctx context.Context, id string) error
	RecentActivity(ctx context.Context, agentID string, limit int) ([]*bot.ActivityEntry, error)
	ListPersonalities(ctx context.Context) ([]*bot.Personality, error)
	SavePersonality(ctx context.Context, p *bot.Personality) error
}

// CycleTrigger is the manual-execution slice of the cycle runner.
type CycleTrigger interface {
	RunAll(ctx context.Context) *cycle.Summary
	Execute(ctx context.Context, agent *bot.Agent, action bot.Action, answerable []*content.Question) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store        AgentStore
	controller   *cycle.Controller
	trigger      CycleTrigger
	intervalSecs int
	logger       *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewHandler creates the API handler. intervalSecs is the default countdown
// used when a start request does not carry one.
func NewHandler(store AgentStore, controller *cycle.Controller, trigger CycleTrigger, intervalSecs int, rng *rand.Rand, logger *zap.Logger) *Handler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Handler{
		store:        store,
		controller:   controller,
		trigger:      trigger,
		intervalSecs: intervalSecs,
		rng:          rng,
		logger:       logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Get("/agents", h.listAgents)
		r.Post("/agents", h.createAgent)
		r.Post("/agents/generate", h.generateAgents)
		r.Get("/agents/{id}", h.getAgent)
		r.Post("/agents/{id}/status", h.setAgentStatus)
		r.Delete("/agents/{id}", h.deleteAgent)
		r.Post("/agents/{id}/trigger", h.triggerAgent)
		r.Get("/agents/{id}/schedules", h.listSchedules)
		r.Post("/agents/{id}/schedules", h.addSchedule)
		r.Delete("/schedules/{id}", h.deleteSchedule)
		r.Get("/agents/{id}/activity", h.agentActivity)

		r.Get("/personalities", h.listPersonalities)
		r.Post("/personalities", h.createPersonality)

		r.Post("/controller/start", h.startController)
		r.Post("/controller/stop", h.stopController)
		r.Get("/controller/status", h.controllerStatus)
		r.Post("/cycle/run", h.runCycleNow)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.store.ListAgents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if agents == nil {
		agents = []*bot.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var a bot.Agent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if a.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if a.Type == "" {
		a.Type = bot.TypeMixed
	}
	if a.Status == "" {
		a.Status = bot.StatusActive
	}
	if a.ActivityLevel < 1 || a.ActivityLevel > 10 {
		a.ActivityLevel = 5
	}
	if len(a.Expertise) > 5 {
		a.Expertise = a.Expertise[:5]
	}
	if err := h.store.SaveAgent(r.Context(), &a); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type generateRequest struct {
	Count int `json:"count"`
}

func (h *Handler) generateAgents(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Count < 1 || req.Count > 50 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "count must be between 1 and 50"})
		return
	}

	created := make([]*bot.Agent, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		h.mu.Lock()
		a := bot.RandomAgent(h.rng)
		h.mu.Unlock()
		if err := h.store.SaveAgent(r.Context(), a); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		created = append(created, a)
	}
	h.logger.Info("generated agents", zap.Int("count", len(created)))
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetAgent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) setAgentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status := bot.Status(req.Status)
	switch status {
	case bot.StatusActive, bot.StatusPaused, bot.StatusArchived:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be active, paused or archived"})
		return
	}
	if _, err := h.store.GetAgent(r.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	if err := h.store.SetAgentStatus(r.Context(), id, status); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}

func (h *Handler) deleteAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetAgent(r.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	if err := h.store.DeleteAgent(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type triggerRequest struct {
	Action string `json:"action"`
}

// triggerAgent forces one action for one agent, skipping the schedule and
// decision gates. Duplicate suppression still applies inside generation.
func (h *Handler) triggerAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	action := bot.Action(req.Action)
	switch action {
	case bot.ActionAsk, bot.ActionAnswer, bot.ActionVote:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action must be ask_question, answer_question or vote"})
		return
	}

	agent, err := h.store.GetAgent(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}

	if err := h.trigger.Execute(r.Context(), agent, action, nil); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"agent_id": id,
		"action":   req.Action,
		"status":   "executed",
	})
}

func (h *Handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.SchedulesFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rules == nil {
		rules = []bot.ScheduleRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func (h *Handler) addSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetAgent(r.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}

	var rule bot.ScheduleRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rule.AgentID = id
	rule.Active = true
	if rule.Weekday != nil && (*rule.Weekday < 0 || *rule.Weekday > 6) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weekday must be 0-6"})
		return
	}
	if err := h.store.AddSchedule(r.Context(), &rule); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *Handler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) agentActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.RecentActivity(r.Context(), chi.URLParam(r, "id"), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []*bot.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) listPersonalities(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListPersonalities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []*bot.Personality{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) createPersonality(w http.ResponseWriter, r *http.Request) {
	var p bot.Personality
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if p.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if err := h.store.SavePersonality(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type startRequest struct {
	IntervalSecs int `json:"interval_secs"`
}

func (h *Handler) startController(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	interval := req.IntervalSecs
	if interval <= 0 {
		interval = h.intervalSecs
	}
	if !h.controller.Start(interval) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "controller already running"})
		return
	}
	writeJSON(w, http.StatusOK, h.controller.Status())
}

func (h *Handler) stopController(w http.ResponseWriter, r *http.Request) {
	if !h.controller.Stop() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "controller not running"})
		return
	}
	writeJSON(w, http.StatusOK, h.controller.Status())
}

func (h *Handler) controllerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Status())
}

// runCycleNow kicks off one schedule-ignoring pass over all agents in the
// background. The countdown is untouched.
func (h *Handler) runCycleNow(w http.ResponseWriter, r *http.Request) {
	go func() {
		s := h.trigger.RunAll(context.Background())
		h.logger.Info("manual cycle finished",
			zap.Int("acted", s.Acted), zap.Int("failed", s.Failed))
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cycle started"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
