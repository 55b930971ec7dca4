package model

// Language selects template fallbacks and status labels. The tenant UI
// supports Portuguese and English; pt is the product default.
type Language string

const (
	LanguagePT Language = "pt"
	LanguageEN Language = "en"
)

// SchedulingRules carries the tenant's scheduling configuration. Only
// ReminderLeadTimeHours drives core behavior; the remaining fields are held
// for persisted-document fidelity and surrounding modules.
type SchedulingRules struct {
	MaxDailyAppointments   int  `json:"maxDailyAppointments"`
	MinAdvanceBookingHours int  `json:"minAdvanceBookingHours"`
	MinCancellationHours   int  `json:"minCancellationHours"`
	AllowClientReschedule  bool `json:"allowClientReschedule"`
	ReminderLeadTimeHours  int  `json:"reminderLeadTimeHours"`
}

// ContactTemplateSet holds the message templates used for one appointment
// status (or for the reminder flow).
type ContactTemplateSet struct {
	WhatsApp     string `json:"whatsapp"`
	SMS          string `json:"sms"`
	EmailSubject string `json:"emailSubject"`
	EmailBody    string `json:"emailBody"`
}

// ContactTemplates maps appointment statuses (plus the reminder flow) to
// template sets, and carries the staff-facing WhatsApp template.
type ContactTemplates struct {
	Pending       ContactTemplateSet `json:"pending"`
	Confirmed     ContactTemplateSet `json:"confirmed"`
	Cancelled     ContactTemplateSet `json:"cancelled"`
	Completed     ContactTemplateSet `json:"completed"`
	Rescheduled   ContactTemplateSet `json:"rescheduled"`
	Reminder      ContactTemplateSet `json:"reminder"`
	StaffWhatsApp string             `json:"staffWhatsApp"`
}

// ForStatus returns the template set configured for a status.
func (t ContactTemplates) ForStatus(s Status) ContactTemplateSet {
	switch s {
	case StatusConfirmed:
		return t.Confirmed
	case StatusCancelled:
		return t.Cancelled
	case StatusCompleted:
		return t.Completed
	case StatusRescheduled:
		return t.Rescheduled
	default:
		return t.Pending
	}
}

type TenantConfig struct {
	Name             string           `json:"name"`
	Currency         string           `json:"currency,omitempty"`
	Locale           string           `json:"locale,omitempty"`
	Language         Language         `json:"language"`
	FallbackLocation string           `json:"fallbackLocation,omitempty"`
	SchedulingRules  SchedulingRules  `json:"schedulingRules"`
	ContactTemplates ContactTemplates `json:"contactTemplates"`
}

const (
	minReminderLeadHours     = 1
	maxReminderLeadHours     = 72
	defaultReminderLeadHours = 24
)

// ReminderLeadHours returns the configured reminder lead time clamped to the
// supported 1-72h range, defaulting when unset.
func (t TenantConfig) ReminderLeadHours() int {
	h := t.SchedulingRules.ReminderLeadTimeHours
	if h == 0 {
		return defaultReminderLeadHours
	}
	if h < minReminderLeadHours {
		return minReminderLeadHours
	}
	if h > maxReminderLeadHours {
		return maxReminderLeadHours
	}
	return h
}

// DefaultTenant returns the configuration applied to a fresh account and
// used to backfill documents saved before a field existed.
func DefaultTenant() TenantConfig {
	return TenantConfig{
		Name:     "Service Hub",
		Currency: "AOA",
		Locale:   "pt-AO",
		Language: LanguagePT,
		SchedulingRules: SchedulingRules{
			MaxDailyAppointments:   50,
			MinAdvanceBookingHours: 1,
			MinCancellationHours:   12,
			AllowClientReschedule:  true,
			ReminderLeadTimeHours:  defaultReminderLeadHours,
		},
		ContactTemplates: defaultContactTemplates(),
	}
}

func defaultContactTemplates() ContactTemplates {
	base := func(body string) ContactTemplateSet {
		return ContactTemplateSet{
			WhatsApp:     body,
			SMS:          body,
			EmailSubject: "Agendamento - {nome_empresa}",
			EmailBody:    body,
		}
	}
	return ContactTemplates{
		Pending:       base("Olá {nome_cliente}, recebemos o seu pedido de {servico} para {data} às {hora}."),
		Confirmed:     base("Olá {nome_cliente}, confirmamos o seu {servico} em {data} às {hora} com {funcionario}, em {local}."),
		Cancelled:     base("Olá {nome_cliente}, o seu agendamento de {servico} em {data} foi cancelado."),
		Completed:     base("Olá {nome_cliente}, obrigado por escolher a {nome_empresa}!"),
		Rescheduled:   base("Olá {nome_cliente}, o seu {servico} foi remarcado para {data} às {hora}."),
		Reminder:      base("Olá {nome_cliente}, lembrete: {servico} {data} às {hora} com {funcionario}, em {local}."),
		StaffWhatsApp: "Olá {nome_staff}, novo agendamento: {servico} em {data} às {hora} ({nome_cliente}).",
	}
}

// Normalize fills gaps in a tenant loaded from an older persisted document.
func (t TenantConfig) Normalize() TenantConfig {
	def := DefaultTenant()
	if t.Name == "" {
		t.Name = def.Name
	}
	if t.Language != LanguagePT && t.Language != LanguageEN {
		t.Language = def.Language
	}
	if t.SchedulingRules.ReminderLeadTimeHours == 0 {
		t.SchedulingRules.ReminderLeadTimeHours = def.SchedulingRules.ReminderLeadTimeHours
	}
	empty := ContactTemplateSet{}
	if t.ContactTemplates.Reminder == empty {
		t.ContactTemplates.Reminder = def.ContactTemplates.Reminder
	}
	if t.ContactTemplates.StaffWhatsApp == "" {
		t.ContactTemplates.StaffWhatsApp = def.ContactTemplates.StaffWhatsApp
	}
	return t
}
