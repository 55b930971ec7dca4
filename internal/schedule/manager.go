// Package schedule implements the appointment scheduling core: conflict
// gating, lifecycle operations with audit history, and the time-driven
// reminder scheduler.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/serviceflow/schedcore/internal/message"
	"github.com/serviceflow/schedcore/internal/metrics"
	"github.com/serviceflow/schedcore/internal/model"
	"github.com/serviceflow/schedcore/internal/notify"
	"github.com/serviceflow/schedcore/internal/store"
)

const (
	noteCreated  = "created"
	noteEdited   = "edited"
	noteReminder = "reminder sent automatically"
)

// Manager owns every appointment mutation. Its mutex serializes the
// conflict-check-then-write sequence against the reminder scheduler; the
// store's own lock only protects individual reads and writes.
type Manager struct {
	store      *store.Store
	dispatcher *notify.Dispatcher
	logger     *slog.Logger

	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

func NewManager(st *store.Store, dispatcher *notify.Dispatcher, logger *slog.Logger) *Manager {
	return &Manager{
		store:      st,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// UpdateOptions control what an edit preserves. By default notifications and
// the reminder flag survive edits; moving the start time always re-arms the
// reminder so the new slot gets its own dispatch.
type UpdateOptions struct {
	ResetReminder      bool
	ClearNotifications bool
}

// Create validates and saves a new appointment. On success the returned
// drafts carry the rendered notification messages for a non-pending status;
// the caller presents them for review, sending is a separate step. A
// rejected save leaves the store untouched.
func (m *Manager) Create(draft model.Appointment) (model.Appointment, []notify.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt := draft.Clone()
	if appt.Status == "" {
		appt.Status = model.StatusPending
	}
	if err := m.validate(&appt); err != nil {
		return model.Appointment{}, nil, err
	}
	if HasConflict(appt, m.store.Appointments()) {
		metrics.ConflictsRejected.Inc()
		return model.Appointment{}, nil, &ConflictError{StaffID: appt.StaffID, Start: appt.StartTime, End: appt.EndTime}
	}

	now := m.now()
	appt.ID = m.newID()
	appt.ReminderSent = false
	appt.Notifications = nil
	appt.History = []model.HistoryEntry{{Status: appt.Status, UpdatedAt: now, Note: noteCreated}}

	m.store.UpsertAppointment(appt)
	metrics.AppointmentsCreated.Inc()
	m.logger.Info("appointment created", "appointment_id", appt.ID, "staff_id", appt.StaffID, "status", appt.Status)

	return appt, m.notificationFlow(appt), nil
}

// Update validates and saves an edit of an existing appointment. History is
// append-only: the prior entries are preserved and an "edited" entry is
// stamped with the resulting status.
func (m *Manager) Update(id string, patch model.Appointment, opts UpdateOptions) (model.Appointment, []notify.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.store.AppointmentByID(id)
	if !ok {
		return model.Appointment{}, nil, ErrNotFound
	}

	next := patch.Clone()
	next.ID = id
	if next.Status == "" {
		next.Status = current.Status
	}
	if err := m.validate(&next); err != nil {
		return model.Appointment{}, nil, err
	}
	if HasConflict(next, m.store.Appointments()) {
		metrics.ConflictsRejected.Inc()
		return model.Appointment{}, nil, &ConflictError{StaffID: next.StaffID, Start: next.StartTime, End: next.EndTime}
	}

	next.Notifications = current.Notifications
	if opts.ClearNotifications {
		next.Notifications = nil
	}
	next.ReminderSent = current.ReminderSent
	if opts.ResetReminder || !next.StartTime.Equal(current.StartTime) {
		next.ReminderSent = false
	}

	now := m.now()
	next.History = append(append([]model.HistoryEntry(nil), current.History...),
		model.HistoryEntry{Status: next.Status, UpdatedAt: now, Note: noteEdited})

	m.store.UpsertAppointment(next)
	m.logger.Info("appointment updated", "appointment_id", id, "status", next.Status)

	return next, m.notificationFlow(next), nil
}

// Duplicate produces a fresh unsaved draft from an existing appointment:
// relational and descriptive fields are copied, identity and lifecycle state
// are reset so the copy starts its own history.
func (m *Manager) Duplicate(appt model.Appointment) model.Appointment {
	draft := appt.Clone()
	draft.ID = ""
	draft.Status = model.StatusPending
	draft.History = nil
	draft.Notifications = nil
	draft.ReminderSent = false
	return draft
}

// ClearAppointments discards every appointment. The clear takes the manager
// mutex so it cannot interleave with a reminder scan's batch write; a clear
// landing mid-scan would otherwise be overwritten by the scan's snapshot.
func (m *Manager) ClearAppointments() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.ClearAppointments()
}

// TriggerNotificationFlow renders the template set matching the
// appointment's current status into channel drafts. Pending appointments
// produce no drafts; outbound contact starts once a human has moved the
// appointment forward.
func (m *Manager) TriggerNotificationFlow(appt model.Appointment) []notify.Draft {
	return m.notificationFlow(appt)
}

func (m *Manager) notificationFlow(appt model.Appointment) []notify.Draft {
	if appt.Status == model.StatusPending {
		return nil
	}

	tenant := m.store.Tenant()
	rel := m.related(appt)
	set := message.RenderSet(tenant.ContactTemplates.ForStatus(appt.Status), appt, rel, tenant)

	var clientPhone, clientEmail string
	if rel.Client != nil {
		clientPhone = rel.Client.Phone
		clientEmail = rel.Client.Email
	}

	drafts := []notify.Draft{
		{Channel: model.ChannelWhatsApp, Recipient: clientPhone, Body: set.WhatsApp, Kind: model.KindImmediate},
		{Channel: model.ChannelSMS, Recipient: clientPhone, Body: set.SMS, Kind: model.KindImmediate},
		{Channel: model.ChannelEmail, Recipient: clientEmail, Subject: set.EmailSubject, Body: set.EmailBody, Kind: model.KindImmediate},
	}

	if rel.Staff != nil && tenant.ContactTemplates.StaffWhatsApp != "" {
		drafts = append(drafts, notify.Draft{
			Channel:   model.ChannelWhatsApp,
			Recipient: rel.Staff.Phone,
			Body:      message.Render(tenant.ContactTemplates.StaffWhatsApp, appt, rel, tenant),
			Kind:      model.KindImmediate,
		})
	}
	return drafts
}

// SendNotification hands one draft (possibly edited by the user) to its
// delivery channel and records the attempt in the appointment's
// notification log. Delivery failure is recorded, not propagated. Delivery
// runs outside the manager lock so a slow gateway never stalls saves.
func (m *Manager) SendNotification(ctx context.Context, id string, draft notify.Draft) (model.Appointment, error) {
	m.mu.Lock()
	_, ok := m.store.AppointmentByID(id)
	m.mu.Unlock()
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	if draft.Kind == "" {
		draft.Kind = model.KindImmediate
	}

	status := m.dispatcher.Dispatch(ctx, id, draft)

	m.mu.Lock()
	defer m.mu.Unlock()
	appt, ok := m.store.AppointmentByID(id)
	if !ok {
		// Cleared while the gateway was answering; nothing left to log on.
		return model.Appointment{}, ErrNotFound
	}
	appt.Notifications = append(appt.Notifications, model.NotificationLog{
		Channel: draft.Channel,
		SentAt:  m.now(),
		Status:  status,
		Kind:    draft.Kind,
	})
	m.store.UpsertAppointment(appt)
	return appt, nil
}

func (m *Manager) validate(appt *model.Appointment) error {
	if appt.ClientID == "" {
		return &ValidationError{Field: "clientId"}
	}
	if appt.ServiceID == "" {
		return &ValidationError{Field: "serviceId"}
	}
	if appt.StartTime.IsZero() {
		return &ValidationError{Field: "startTime"}
	}
	if !model.ValidStatus(appt.Status) {
		return &ValidationError{Field: "status", Reason: "unknown status " + string(appt.Status)}
	}

	if appt.EndTime.IsZero() {
		if svc, ok := m.store.ServiceByID(appt.ServiceID); ok && svc.Duration > 0 {
			appt.EndTime = appt.StartTime.Add(time.Duration(svc.Duration) * time.Minute)
		}
	}
	if appt.EndTime.IsZero() {
		return &ValidationError{Field: "endTime"}
	}
	if !appt.EndTime.After(appt.StartTime) {
		return &ValidationError{Field: "endTime", Reason: "must be after startTime"}
	}
	return nil
}

func (m *Manager) related(appt model.Appointment) message.Related {
	var rel message.Related
	if c, ok := m.store.ClientByID(appt.ClientID); ok {
		rel.Client = &c
	}
	if svc, ok := m.store.ServiceByID(appt.ServiceID); ok {
		rel.Service = &svc
	}
	if st, ok := m.store.StaffByID(appt.StaffID); ok {
		rel.Staff = &st
	}
	return rel
}
