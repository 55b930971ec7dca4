package model

import "time"

// Status is the lifecycle status of an appointment. Transitions are
// deliberately permissive (any status can be edited into any other): the
// product treats the status as an annotation reviewed by a human, not a
// strict state machine. A cancelled appointment can legally be reopened.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusRescheduled Status = "rescheduled"
	StatusCancelled   Status = "cancelled"
	StatusCompleted   Status = "completed"
)

// KnownStatuses lists every valid appointment status.
var KnownStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusRescheduled,
	StatusCancelled,
	StatusCompleted,
}

func ValidStatus(s Status) bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// HistoryEntry is an immutable audit record of a status at a point in time.
// History is append-only; entries are never rewritten or reordered.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
	Note      string    `json:"note,omitempty"`
}

// Notification channels and delivery dispositions.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	ChannelSMS      = "sms"

	DeliverySent   = "sent"
	DeliveryFailed = "failed"
	DeliveryQueued = "queued"

	KindImmediate = "immediate"
	KindReminder  = "reminder"
)

// NotificationLog records one delivery attempt hand-off for an appointment.
type NotificationLog struct {
	Channel string    `json:"channel"`
	SentAt  time.Time `json:"sentAt"`
	Status  string    `json:"status"`
	Kind    string    `json:"kind"`
}

// Appointment is the central scheduling entity. Times are naive wall-clock
// instants supplied by the caller; the core compares them directly and never
// converts between zones.
type Appointment struct {
	ID            string            `json:"id"`
	Title         string            `json:"title,omitempty"`
	ClientID      string            `json:"clientId"`
	ServiceID     string            `json:"serviceId"`
	StaffID       string            `json:"staffId"`
	StartTime     time.Time         `json:"startTime"`
	EndTime       time.Time         `json:"endTime"`
	Location      string            `json:"location,omitempty"`
	Status        Status            `json:"status"`
	Notes         string            `json:"notes,omitempty"`
	History       []HistoryEntry    `json:"history"`
	Notifications []NotificationLog `json:"notifications"`
	CustomData    map[string]any    `json:"customData,omitempty"`
	ReminderSent  bool              `json:"reminderSent"`
}

// Clone returns a deep copy. Mutating the copy never leaks into slices or
// maps held by the store.
func (a Appointment) Clone() Appointment {
	out := a
	if a.History != nil {
		out.History = make([]HistoryEntry, len(a.History))
		copy(out.History, a.History)
	}
	if a.Notifications != nil {
		out.Notifications = make([]NotificationLog, len(a.Notifications))
		copy(out.Notifications, a.Notifications)
	}
	if a.CustomData != nil {
		out.CustomData = make(map[string]any, len(a.CustomData))
		for k, v := range a.CustomData {
			out.CustomData[k] = v
		}
	}
	return out
}
