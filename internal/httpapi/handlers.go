// Package httpapi exposes the scheduling core over a small JSON API for the
// dashboard frontend.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/serviceflow/schedcore/internal/model"
	"github.com/serviceflow/schedcore/internal/notify"
	"github.com/serviceflow/schedcore/internal/schedule"
	"github.com/serviceflow/schedcore/internal/store"
)

type Handler struct {
	store     *store.Store
	manager   *schedule.Manager
	scheduler *schedule.Scheduler
	logger    *slog.Logger

	// baseCtx scopes background work started over the API (scheduler start)
	// to the process lifetime rather than the request.
	baseCtx context.Context
}

func New(baseCtx context.Context, st *store.Store, manager *schedule.Manager, scheduler *schedule.Scheduler, logger *slog.Logger) *Handler {
	return &Handler{
		store:     st,
		manager:   manager,
		scheduler: scheduler,
		logger:    logger,
		baseCtx:   baseCtx,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/appointments", h.Appointments)
	mux.HandleFunc("/api/v1/appointments/update", h.Update)
	mux.HandleFunc("/api/v1/appointments/duplicate", h.Duplicate)
	mux.HandleFunc("/api/v1/appointments/drafts", h.Drafts)
	mux.HandleFunc("/api/v1/appointments/notify", h.Notify)
	mux.HandleFunc("/api/v1/appointments/clear", h.Clear)
	mux.HandleFunc("/api/v1/reference", h.Reference)
	mux.HandleFunc("/api/v1/tenant", h.Tenant)
	mux.HandleFunc("/api/v1/scheduler", h.SchedulerStatus)
	mux.HandleFunc("/api/v1/scheduler/start", h.SchedulerStart)
	mux.HandleFunc("/api/v1/scheduler/stop", h.SchedulerStop)
}

// appointmentPayload is the wire form of an appointment edit. Times are
// wall-clock strings; both RFC3339 and the frontend's "2006-01-02T15:04"
// form are accepted.
type appointmentPayload struct {
	Title      string         `json:"title"`
	ClientID   string         `json:"clientId"`
	ServiceID  string         `json:"serviceId"`
	StaffID    string         `json:"staffId"`
	StartTime  string         `json:"startTime"`
	EndTime    string         `json:"endTime"`
	Location   string         `json:"location"`
	Status     string         `json:"status"`
	Notes      string         `json:"notes"`
	CustomData map[string]any `json:"customData"`
}

func parseWallClock(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p appointmentPayload) toModel() (model.Appointment, string) {
	start, ok := parseWallClock(p.StartTime)
	if !ok {
		return model.Appointment{}, "invalid startTime"
	}
	end, ok := parseWallClock(p.EndTime)
	if !ok {
		return model.Appointment{}, "invalid endTime"
	}
	return model.Appointment{
		Title:      strings.TrimSpace(p.Title),
		ClientID:   strings.TrimSpace(p.ClientID),
		ServiceID:  strings.TrimSpace(p.ServiceID),
		StaffID:    strings.TrimSpace(p.StaffID),
		StartTime:  start,
		EndTime:    end,
		Location:   strings.TrimSpace(p.Location),
		Status:     model.Status(strings.TrimSpace(p.Status)),
		Notes:      p.Notes,
		CustomData: p.CustomData,
	}, ""
}

type savedResponse struct {
	Appointment model.Appointment `json:"appointment"`
	Drafts      []notify.Draft    `json:"drafts,omitempty"`
}

// Appointments handles GET (list) and POST (create).
func (h *Handler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.store.Appointments())
	case http.MethodPost:
		var payload appointmentPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		draft, msg := payload.toModel()
		if msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		appt, drafts, err := h.manager.Create(draft)
		if err != nil {
			writeScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, savedResponse{Appointment: appt, Drafts: drafts})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
		appointmentPayload
		ResetReminder      bool `json:"resetReminder"`
		ClearNotifications bool `json:"clearNotifications"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	patch, msg := req.toModel()
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	appt, drafts, err := h.manager.Update(req.ID, patch, schedule.UpdateOptions{
		ResetReminder:      req.ResetReminder,
		ClearNotifications: req.ClearNotifications,
	})
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, savedResponse{Appointment: appt, Drafts: drafts})
}

// Duplicate returns an unsaved draft copied from an existing appointment.
func (h *Handler) Duplicate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	appt, ok := h.store.AppointmentByID(strings.TrimSpace(req.ID))
	if !ok {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.manager.Duplicate(appt))
}

// Drafts renders the notification templates for an appointment's current
// status without sending anything.
func (h *Handler) Drafts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	appt, ok := h.store.AppointmentByID(strings.TrimSpace(req.ID))
	if !ok {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.manager.TriggerNotificationFlow(appt))
}

// Notify sends one draft (possibly edited by the user) and records the
// attempt in the appointment's notification log.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID        string `json:"id"`
		Channel   string `json:"channel"`
		Recipient string `json:"recipient"`
		Subject   string `json:"subject"`
		Body      string `json:"body"`
		Kind      string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Channel = strings.TrimSpace(req.Channel)
	if req.ID == "" || req.Channel == "" || strings.TrimSpace(req.Body) == "" {
		http.Error(w, "id, channel and body required", http.StatusBadRequest)
		return
	}
	appt, err := h.manager.SendNotification(r.Context(), req.ID, notify.Draft{
		Channel:   req.Channel,
		Recipient: strings.TrimSpace(req.Recipient),
		Subject:   req.Subject,
		Body:      req.Body,
		Kind:      req.Kind,
	})
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Clear discards every appointment (bulk clear is the only destructive
// appointment operation). Goes through the manager so the clear serializes
// with in-flight reminder scans.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.manager.ClearAppointments()
	w.WriteHeader(http.StatusNoContent)
}

// Reference replaces the read-mostly client/staff/service collections in one
// shot, matching the replace-on-write model of the surrounding application.
func (h *Handler) Reference(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Clients  []model.Client  `json:"clients"`
		Staff    []model.Staff   `json:"staff"`
		Services []model.Service `json:"services"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Clients != nil {
		h.store.ReplaceClients(req.Clients)
	}
	if req.Staff != nil {
		h.store.ReplaceStaff(req.Staff)
	}
	if req.Services != nil {
		h.store.ReplaceServices(req.Services)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Tenant(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.store.Tenant())
	case http.MethodPut:
		var tenant model.TenantConfig
		if err := json.NewDecoder(r.Body).Decode(&tenant); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		h.store.SetTenant(tenant)
		writeJSON(w, http.StatusOK, h.store.Tenant())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"running": h.scheduler.Running()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.scheduler.Start(h.baseCtx)
	writeJSON(w, http.StatusOK, map[string]bool{"running": true})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.scheduler.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"running": false})
}

func writeScheduleError(w http.ResponseWriter, err error) {
	switch {
	case schedule.IsValidation(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case schedule.IsConflict(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case schedule.IsNotFound(err):
		http.Error(w, "appointment not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
