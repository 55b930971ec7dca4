// Package message renders tenant contact templates for appointments.
// Templates are plain strings with literal tokens; rendering is a pure
// function of its inputs and never fails. Drafts are reviewed by a human
// before sending, so unresolved relations degrade to neutral labels instead
// of erroring.
package message

import (
	"fmt"
	"strings"
	"time"

	"github.com/serviceflow/schedcore/internal/model"
)

// Tokens replaced in templates (case-sensitive, every occurrence). The token
// names are part of the persisted tenant data format and must not change.
const (
	TokenClientName   = "{nome_cliente}"
	TokenBusinessName = "{nome_empresa}"
	TokenService      = "{servico}"
	TokenDate         = "{data}"
	TokenTime         = "{hora}"
	TokenStaff        = "{funcionario}"
	TokenLocation     = "{local}"
	TokenStatus       = "{status}"
	TokenStaffName    = "{nome_staff}"
)

// Related carries the resolved relations of an appointment. Nil entries mean
// the reference did not resolve.
type Related struct {
	Client  *model.Client
	Service *model.Service
	Staff   *model.Staff
}

// Render substitutes every token in template with values drawn from the
// appointment, its related entities and the tenant.
func Render(template string, appt model.Appointment, rel Related, tenant model.TenantConfig) string {
	lang := tenant.Language

	clientName := fallbackLabel(lang, "client")
	if rel.Client != nil {
		clientName = rel.Client.Name
	}
	serviceName := fallbackLabel(lang, "service")
	if rel.Service != nil {
		serviceName = rel.Service.Name
	}
	staffName := fallbackLabel(lang, "staff")
	if rel.Staff != nil {
		staffName = rel.Staff.Name
	}

	r := strings.NewReplacer(
		TokenClientName, clientName,
		TokenBusinessName, tenant.Name,
		TokenService, serviceName,
		TokenDate, FormatDate(appt.StartTime, lang),
		TokenTime, FormatTime(appt.StartTime),
		TokenStaff, staffName,
		TokenStaffName, staffName,
		TokenLocation, resolveLocation(appt, rel, tenant),
		TokenStatus, StatusLabel(appt.Status, lang),
	)
	return r.Replace(template)
}

// RenderSet renders a whole template set for one appointment.
func RenderSet(set model.ContactTemplateSet, appt model.Appointment, rel Related, tenant model.TenantConfig) model.ContactTemplateSet {
	return model.ContactTemplateSet{
		WhatsApp:     Render(set.WhatsApp, appt, rel, tenant),
		SMS:          Render(set.SMS, appt, rel, tenant),
		EmailSubject: Render(set.EmailSubject, appt, rel, tenant),
		EmailBody:    Render(set.EmailBody, appt, rel, tenant),
	}
}

// Location precedence: explicit appointment override, then the client's
// registered address, then the tenant-configured fallback.
func resolveLocation(appt model.Appointment, rel Related, tenant model.TenantConfig) string {
	if appt.Location != "" {
		return appt.Location
	}
	if rel.Client != nil && rel.Client.Location.Address != "" {
		return rel.Client.Location.Address
	}
	if tenant.FallbackLocation != "" {
		return tenant.FallbackLocation
	}
	if tenant.Language == model.LanguageEN {
		return "our location"
	}
	return "nossas instalações"
}

// FormatDate renders a date-only value in the tenant's language convention.
func FormatDate(t time.Time, lang model.Language) string {
	if t.IsZero() {
		return ""
	}
	if lang == model.LanguageEN {
		return t.Format("Jan 2, 2006")
	}
	return t.Format("02/01/2006")
}

// FormatTime renders an hour:minute value.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("15:04")
}

var statusLabels = map[model.Language]map[model.Status]string{
	model.LanguagePT: {
		model.StatusPending:     "Pendente",
		model.StatusConfirmed:   "Confirmado",
		model.StatusRescheduled: "Remarcado",
		model.StatusCancelled:   "Cancelado",
		model.StatusCompleted:   "Concluído",
	},
	model.LanguageEN: {
		model.StatusPending:     "Pending",
		model.StatusConfirmed:   "Confirmed",
		model.StatusRescheduled: "Rescheduled",
		model.StatusCancelled:   "Cancelled",
		model.StatusCompleted:   "Completed",
	},
}

// StatusLabel returns the display text for a status in the given language.
// Unknown statuses render as-is rather than erroring.
func StatusLabel(s model.Status, lang model.Language) string {
	labels, ok := statusLabels[lang]
	if !ok {
		labels = statusLabels[model.LanguagePT]
	}
	if label, ok := labels[s]; ok {
		return label
	}
	return string(s)
}

var fallbackLabels = map[model.Language]map[string]string{
	model.LanguagePT: {"client": "Cliente", "service": "Serviço", "staff": "Funcionário"},
	model.LanguageEN: {"client": "Client", "service": "Service", "staff": "Staff"},
}

func fallbackLabel(lang model.Language, kind string) string {
	labels, ok := fallbackLabels[lang]
	if !ok {
		labels = fallbackLabels[model.LanguagePT]
	}
	if label, ok := labels[kind]; ok {
		return label
	}
	return fmt.Sprintf("<%s>", kind)
}
