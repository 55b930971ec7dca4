package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AppointmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedcore_appointments_created_total",
			Help: "Appointments created",
		},
	)

	ConflictsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedcore_conflicts_rejected_total",
			Help: "Saves rejected because of a staff double-booking",
		},
	)

	RemindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedcore_reminders_sent_total",
			Help: "Automatic reminders dispatched by the scheduler",
		},
	)

	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedcore_notifications_dispatched_total",
			Help: "Notification hand-offs by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	DocumentSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedcore_document_saves_total",
			Help: "Best-effort document saves by backend and outcome",
		},
		[]string{"backend", "status"},
	)
)

func Init() {
	prometheus.MustRegister(AppointmentsCreated)
	prometheus.MustRegister(ConflictsRejected)
	prometheus.MustRegister(RemindersSent)
	prometheus.MustRegister(NotificationsDispatched)
	prometheus.MustRegister(DocumentSaves)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
