package model

import "testing"

func TestReminderLeadHours_Clamping(t *testing.T) {
	cases := []struct {
		configured int
		want       int
	}{
		{0, 24},
		{-5, 1},
		{1, 1},
		{48, 48},
		{72, 72},
		{100, 72},
	}
	for _, tc := range cases {
		tenant := TenantConfig{}
		tenant.SchedulingRules.ReminderLeadTimeHours = tc.configured
		if got := tenant.ReminderLeadHours(); got != tc.want {
			t.Errorf("ReminderLeadHours(%d) = %d, want %d", tc.configured, got, tc.want)
		}
	}
}

func TestNormalize_BackfillsOlderDocuments(t *testing.T) {
	var tenant TenantConfig
	got := tenant.Normalize()

	if got.Name == "" {
		t.Error("name not backfilled")
	}
	if got.Language != LanguagePT {
		t.Errorf("language = %q, want pt", got.Language)
	}
	if got.SchedulingRules.ReminderLeadTimeHours != 24 {
		t.Errorf("lead = %d, want 24", got.SchedulingRules.ReminderLeadTimeHours)
	}
	if got.ContactTemplates.Reminder.WhatsApp == "" {
		t.Error("reminder templates not backfilled")
	}
	if got.ContactTemplates.StaffWhatsApp == "" {
		t.Error("staff template not backfilled")
	}
}

func TestNormalize_PreservesCustomValues(t *testing.T) {
	tenant := DefaultTenant()
	tenant.Name = "Clínica Aurora"
	tenant.Language = LanguageEN
	tenant.SchedulingRules.ReminderLeadTimeHours = 6
	tenant.ContactTemplates.Reminder.WhatsApp = "custom reminder"

	got := tenant.Normalize()
	if got.Name != "Clínica Aurora" || got.Language != LanguageEN {
		t.Errorf("custom identity overwritten: %+v", got)
	}
	if got.SchedulingRules.ReminderLeadTimeHours != 6 {
		t.Errorf("lead = %d, want 6", got.SchedulingRules.ReminderLeadTimeHours)
	}
	if got.ContactTemplates.Reminder.WhatsApp != "custom reminder" {
		t.Errorf("custom reminder template overwritten: %q", got.ContactTemplates.Reminder.WhatsApp)
	}
}

func TestForStatus(t *testing.T) {
	templates := ContactTemplates{
		Pending:     ContactTemplateSet{WhatsApp: "p"},
		Confirmed:   ContactTemplateSet{WhatsApp: "c"},
		Cancelled:   ContactTemplateSet{WhatsApp: "x"},
		Completed:   ContactTemplateSet{WhatsApp: "d"},
		Rescheduled: ContactTemplateSet{WhatsApp: "r"},
	}
	cases := []struct {
		status Status
		want   string
	}{
		{StatusPending, "p"},
		{StatusConfirmed, "c"},
		{StatusCancelled, "x"},
		{StatusCompleted, "d"},
		{StatusRescheduled, "r"},
		{Status("unknown"), "p"},
	}
	for _, tc := range cases {
		if got := templates.ForStatus(tc.status); got.WhatsApp != tc.want {
			t.Errorf("ForStatus(%s) = %q, want %q", tc.status, got.WhatsApp, tc.want)
		}
	}
}

func TestClone_DeepCopies(t *testing.T) {
	a := Appointment{
		ID:            "a1",
		History:       []HistoryEntry{{Status: StatusPending, Note: "created"}},
		Notifications: []NotificationLog{{Channel: ChannelWhatsApp, Status: DeliverySent}},
		CustomData:    map[string]any{"room": "2"},
	}
	c := a.Clone()
	c.History[0].Note = "mutated"
	c.Notifications[0].Status = DeliveryFailed
	c.CustomData["room"] = "9"

	if a.History[0].Note != "created" {
		t.Error("history shared between clone and original")
	}
	if a.Notifications[0].Status != DeliverySent {
		t.Error("notifications shared between clone and original")
	}
	if a.CustomData["room"] != "2" {
		t.Error("customData shared between clone and original")
	}
}
