package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/serviceflow/schedcore/internal/message"
	"github.com/serviceflow/schedcore/internal/metrics"
	"github.com/serviceflow/schedcore/internal/model"
	"github.com/serviceflow/schedcore/internal/notify"
)

// DispatchDueReminders scans confirmed, not-yet-reminded appointments and
// fires a reminder for each one whose start falls inside the tenant's lead
// window: 0 < start-now <= leadHours. Appointments whose window has already
// passed are left alone. Qualifying appointments are marked (reminder flag,
// history entry, queued log entry) under the manager lock and applied as a
// single batch write; delivery then happens outside the lock so a slow
// gateway never stalls saves, and each log entry is finalized with the
// delivery outcome once the gateway answers.
//
// The reminder flag flips false->true exactly once here; delivery failure is
// recorded in the notification log but does not re-arm the reminder.
func (m *Manager) DispatchDueReminders(ctx context.Context, now time.Time) int {
	type delivery struct {
		id    string
		draft notify.Draft
	}

	m.mu.Lock()
	tenant := m.store.Tenant()
	lead := time.Duration(tenant.ReminderLeadHours()) * time.Hour

	appts := m.store.Appointments()
	var due []delivery
	for i := range appts {
		a := appts[i]
		if a.Status != model.StatusConfirmed || a.ReminderSent {
			continue
		}
		delta := a.StartTime.Sub(now)
		if delta <= 0 || delta > lead {
			continue
		}

		rel := m.related(a)
		set := message.RenderSet(tenant.ContactTemplates.Reminder, a, rel, tenant)
		var recipient string
		if rel.Client != nil {
			recipient = rel.Client.Phone
		}

		a.Notifications = append(a.Notifications, model.NotificationLog{
			Channel: model.ChannelWhatsApp,
			SentAt:  now,
			Status:  model.DeliveryQueued,
			Kind:    model.KindReminder,
		})
		a.History = append(a.History, model.HistoryEntry{
			Status:    a.Status,
			UpdatedAt: now,
			Note:      noteReminder,
		})
		a.ReminderSent = true
		appts[i] = a

		due = append(due, delivery{id: a.ID, draft: notify.Draft{
			Channel:   model.ChannelWhatsApp,
			Recipient: recipient,
			Body:      set.WhatsApp,
			Kind:      model.KindReminder,
		}})
		metrics.RemindersSent.Inc()
		m.logger.Info("reminder due",
			"appointment_id", a.ID,
			"start_time", a.StartTime.Format(time.RFC3339),
		)
	}
	if len(due) > 0 {
		m.store.ReplaceAppointments(appts)
	}
	m.mu.Unlock()

	for _, d := range due {
		status := m.dispatcher.Dispatch(ctx, d.id, d.draft)
		m.finalizeReminderLog(d.id, status)
	}
	return len(due)
}

// finalizeReminderLog replaces the queued status of the newest reminder log
// entry with the delivery outcome. The appointment may have been cleared
// while the gateway was answering; then there is nothing left to update.
func (m *Manager) finalizeReminderLog(id string, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.store.AppointmentByID(id)
	if !ok {
		return
	}
	for i := len(a.Notifications) - 1; i >= 0; i-- {
		entry := &a.Notifications[i]
		if entry.Kind == model.KindReminder && entry.Status == model.DeliveryQueued {
			entry.Status = status
			m.store.UpsertAppointment(a)
			return
		}
	}
}

// Scheduler runs the recurring reminder check. It is a cooperative ticker
// loop, not a free-running goroutine per appointment: one scan per interval,
// cancelable through Run's context or Stop.
type Scheduler struct {
	manager  *Manager
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(manager *Manager, logger *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		manager:  manager,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled, scanning once per interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.manager.DispatchDueReminders(ctx, s.now())
		}
	}
}

// Start launches Run on a background goroutine. Starting an already running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Run(runCtx)
	}(s.done)
	s.logger.Info("reminder scheduler started", "interval", s.interval.String())
}

// Stop cancels the background loop and waits for it to finish. Safe to call
// when the scheduler is not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("reminder scheduler stopped")
}

// Running reports whether the background loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
