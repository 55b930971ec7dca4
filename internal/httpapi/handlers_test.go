package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/serviceflow/schedcore/internal/model"
	"github.com/serviceflow/schedcore/internal/notify"
	"github.com/serviceflow/schedcore/internal/schedule"
	"github.com/serviceflow/schedcore/internal/store"
)

func newTestServer(t *testing.T) (*store.Store, *httptest.Server) {
	t.Helper()
	st := store.New(model.DefaultTenant())
	st.ReplaceClients([]model.Client{
		{ID: "c1", Name: "Carlos Oliveira", Phone: "+244900000001", Email: "carlos@example.com"},
	})
	st.ReplaceStaff([]model.Staff{{ID: "s1", Name: "Sarah Martins", Phone: "+244900000002"}})
	st.ReplaceServices([]model.Service{{ID: "sv1", Name: "Limpeza Profunda", Duration: 60}})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := schedule.NewManager(st, notify.NewDispatcher(nil, nil, nil, nil, logger), logger)
	scheduler := schedule.NewScheduler(manager, logger, time.Minute)

	mux := http.NewServeMux()
	New(context.Background(), st, manager, scheduler, logger).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		scheduler.Stop()
		srv.Close()
	})
	return st, srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func createBody(start, end, status string) string {
	b, _ := json.Marshal(map[string]string{
		"clientId":  "c1",
		"serviceId": "sv1",
		"staffId":   "s1",
		"startTime": start,
		"endTime":   end,
		"status":    status,
	})
	return string(b)
}

func TestAppointments_CreateAndList(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/appointments", createBody("2026-04-01T14:00", "2026-04-01T15:00", ""))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	saved := decode[savedResponse](t, resp)
	if saved.Appointment.ID == "" || saved.Appointment.Status != model.StatusPending {
		t.Fatalf("unexpected saved appointment %+v", saved.Appointment)
	}
	if saved.Drafts != nil {
		t.Fatal("pending create must not return drafts")
	}

	resp, err := http.Get(srv.URL + "/api/v1/appointments")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	list := decode[[]model.Appointment](t, resp)
	if len(list) != 1 || list[0].ID != saved.Appointment.ID {
		t.Fatalf("list = %+v", list)
	}
}

func TestAppointments_EndTimeDerived(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/appointments", createBody("2026-04-01T14:00", "", ""))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	saved := decode[savedResponse](t, resp)
	want := time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC)
	if !saved.Appointment.EndTime.Equal(want) {
		t.Fatalf("end = %s, want %s from 60min service", saved.Appointment.EndTime, want)
	}
}

func TestAppointments_ErrorMapping(t *testing.T) {
	_, srv := newTestServer(t)

	// Seed a confirmed booking for the conflict case.
	resp := postJSON(t, srv.URL+"/api/v1/appointments", createBody("2026-04-01T14:00", "2026-04-01T15:00", "confirmed"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing client", `{"serviceId":"sv1","startTime":"2026-04-01T10:00"}`, http.StatusUnprocessableEntity},
		{"unknown status", createBody("2026-04-02T10:00", "2026-04-02T11:00", "archived"), http.StatusUnprocessableEntity},
		{"staff conflict", createBody("2026-04-01T14:30", "2026-04-01T15:30", ""), http.StatusConflict},
		{"bad time format", createBody("yesterday", "", ""), http.StatusBadRequest},
		{"bad json", `{"clientId":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/v1/appointments", tc.body)
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestUpdate_RoundTrip(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/appointments", createBody("2026-04-01T14:00", "2026-04-01T15:00", ""))
	created := decode[savedResponse](t, resp)

	body, _ := json.Marshal(map[string]string{
		"id":        created.Appointment.ID,
		"clientId":  "c1",
		"serviceId": "sv1",
		"staffId":   "s1",
		"startTime": "2026-04-01T14:00",
		"endTime":   "2026-04-01T15:00",
		"status":    "confirmed",
	})
	resp = postJSON(t, srv.URL+"/api/v1/appointments/update", string(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	updated := decode[savedResponse](t, resp)
	if updated.Appointment.Status != model.StatusConfirmed {
		t.Fatalf("status = %s", updated.Appointment.Status)
	}
	if len(updated.Appointment.History) != 2 {
		t.Fatalf("history = %+v", updated.Appointment.History)
	}
	if len(updated.Drafts) == 0 {
		t.Fatal("confirmed update must return drafts")
	}
}

func TestUpdate_UnknownID(t *testing.T) {
	_, srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/v1/appointments/update",
		`{"id":"missing","clientId":"c1","serviceId":"sv1","startTime":"2026-04-01T14:00"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDuplicate(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/appointments", createBody("2026-04-01T14:00", "2026-04-01T15:00", "confirmed"))
	created := decode[savedResponse](t, resp)

	resp = postJSON(t, srv.URL+"/api/v1/appointments/duplicate", `{"id":"`+created.Appointment.ID+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("duplicate status = %d", resp.StatusCode)
	}
	dup := decode[model.Appointment](t, resp)
	if dup.ID != "" || dup.Status != model.StatusPending || len(dup.History) != 0 {
		t.Fatalf("duplicate = %+v", dup)
	}
	if dup.ClientID != "c1" || !dup.StartTime.Equal(created.Appointment.StartTime) {
		t.Fatalf("duplicate lost relations: %+v", dup)
	}
}

func TestDraftsAndNotify(t *testing.T) {
	st, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/appointments", createBody("2026-04-01T14:00", "2026-04-01T15:00", "confirmed"))
	created := decode[savedResponse](t, resp)

	resp = postJSON(t, srv.URL+"/api/v1/appointments/drafts", `{"id":"`+created.Appointment.ID+`"}`)
	drafts := decode[[]notify.Draft](t, resp)
	if len(drafts) != 4 {
		t.Fatalf("drafts = %d, want 4", len(drafts))
	}
	if !strings.Contains(drafts[0].Body, "Carlos Oliveira") {
		t.Fatalf("draft body not rendered: %q", drafts[0].Body)
	}

	body, _ := json.Marshal(map[string]string{
		"id":        created.Appointment.ID,
		"channel":   drafts[0].Channel,
		"recipient": drafts[0].Recipient,
		"body":      drafts[0].Body,
	})
	resp = postJSON(t, srv.URL+"/api/v1/appointments/notify", string(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("notify status = %d", resp.StatusCode)
	}
	sent := decode[model.Appointment](t, resp)
	if len(sent.Notifications) != 1 {
		t.Fatalf("notifications = %+v", sent.Notifications)
	}

	stored, _ := st.AppointmentByID(created.Appointment.ID)
	if len(stored.Notifications) != 1 {
		t.Fatal("notification log not persisted")
	}
}

func TestClear(t *testing.T) {
	st, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/appointments", createBody("2026-04-01T14:00", "2026-04-01T15:00", ""))
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/v1/appointments/clear", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear status = %d", resp.StatusCode)
	}
	if st.AppointmentCount() != 0 {
		t.Fatal("appointments survived clear")
	}
}

func TestReference_PartialReplace(t *testing.T) {
	st, srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/reference",
		strings.NewReader(`{"clients":[{"id":"c2","name":"Beatriz Lima"}]}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if _, ok := st.ClientByID("c2"); !ok {
		t.Fatal("clients not replaced")
	}
	if _, ok := st.ClientByID("c1"); ok {
		t.Fatal("replace must be wholesale")
	}
	// Omitted collections are untouched.
	if _, ok := st.StaffByID("s1"); !ok {
		t.Fatal("staff should be untouched")
	}
}

func TestTenant_UpdateNormalizes(t *testing.T) {
	_, srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/tenant",
		strings.NewReader(`{"name":"Clínica Aurora","schedulingRules":{"reminderLeadTimeHours":48}}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT failed: %v", err)
	}
	tenant := decode[model.TenantConfig](t, resp)
	if tenant.Name != "Clínica Aurora" {
		t.Fatalf("name = %q", tenant.Name)
	}
	if tenant.SchedulingRules.ReminderLeadTimeHours != 48 {
		t.Fatalf("lead = %d", tenant.SchedulingRules.ReminderLeadTimeHours)
	}
	if tenant.Language != model.LanguagePT {
		t.Fatal("normalize should backfill the language")
	}
	if tenant.ContactTemplates.StaffWhatsApp == "" {
		t.Fatal("normalize should backfill the staff template")
	}
}

func TestScheduler_Endpoints(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/scheduler")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	status := decode[map[string]bool](t, resp)
	if status["running"] {
		t.Fatal("scheduler must start stopped")
	}

	resp = postJSON(t, srv.URL+"/api/v1/scheduler/start", "")
	resp.Body.Close()
	resp, err = http.Get(srv.URL + "/api/v1/scheduler")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if status := decode[map[string]bool](t, resp); !status["running"] {
		t.Fatal("scheduler should be running after start")
	}

	resp = postJSON(t, srv.URL+"/api/v1/scheduler/stop", "")
	resp.Body.Close()
	resp, err = http.Get(srv.URL + "/api/v1/scheduler")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if status := decode[map[string]bool](t, resp); status["running"] {
		t.Fatal("scheduler should be stopped after stop")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/appointments/update")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
