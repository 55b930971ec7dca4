// Package store holds the in-memory entity collections for one account.
// Collections are replaced wholesale on write; readers always get copies.
// All access is guarded by a RWMutex so background loops (reminder scheduler,
// persistence saver) can run alongside request handlers.
package store

import (
	"sync"

	"github.com/serviceflow/schedcore/internal/model"
)

// Document is the plain persisted shape of one account's data, keyed by user
// id in the document store. No versioning scheme is defined yet; unknown
// fields are dropped on load.
type Document struct {
	Tenant       model.TenantConfig  `json:"tenant"`
	Clients      []model.Client      `json:"clients"`
	Staff        []model.Staff       `json:"staff"`
	Services     []model.Service     `json:"services"`
	Appointments []model.Appointment `json:"appointments"`
}

type Store struct {
	mu           sync.RWMutex
	tenant       model.TenantConfig
	clients      []model.Client
	staff        []model.Staff
	services     []model.Service
	appointments []model.Appointment

	version  uint64
	onChange func()
}

// New returns an empty store for the given tenant. Multiple independent
// stores may coexist; nothing here is process-global.
func New(tenant model.TenantConfig) *Store {
	return &Store{tenant: tenant.Normalize()}
}

// SetOnChange registers a hook invoked after every mutation, outside the
// store lock. Used by the persistence saver; at most one hook is supported.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Version increments on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) markDirtyLocked() func() {
	s.version++
	return s.onChange
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}

func (s *Store) Tenant() model.TenantConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenant
}

func (s *Store) SetTenant(t model.TenantConfig) {
	s.mu.Lock()
	s.tenant = t.Normalize()
	fn := s.markDirtyLocked()
	s.mu.Unlock()
	notify(fn)
}

func (s *Store) Clients() []model.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Client, len(s.clients))
	copy(out, s.clients)
	return out
}

func (s *Store) Staff() []model.Staff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Staff, len(s.staff))
	copy(out, s.staff)
	return out
}

func (s *Store) Services() []model.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Service, len(s.services))
	copy(out, s.services)
	return out
}

func (s *Store) ReplaceClients(clients []model.Client) {
	s.mu.Lock()
	s.clients = append([]model.Client(nil), clients...)
	fn := s.markDirtyLocked()
	s.mu.Unlock()
	notify(fn)
}

func (s *Store) ReplaceStaff(staff []model.Staff) {
	s.mu.Lock()
	s.staff = append([]model.Staff(nil), staff...)
	fn := s.markDirtyLocked()
	s.mu.Unlock()
	notify(fn)
}

func (s *Store) ReplaceServices(services []model.Service) {
	s.mu.Lock()
	s.services = append([]model.Service(nil), services...)
	fn := s.markDirtyLocked()
	s.mu.Unlock()
	notify(fn)
}

func (s *Store) ClientByID(id string) (model.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.ID == id {
			return c, true
		}
	}
	return model.Client{}, false
}

func (s *Store) StaffByID(id string) (model.Staff, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.staff {
		if st.ID == id {
			return st, true
		}
	}
	return model.Staff{}, false
}

func (s *Store) ServiceByID(id string) (model.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sv := range s.services {
		if sv.ID == id {
			return sv, true
		}
	}
	return model.Service{}, false
}

func (s *Store) Appointments() []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Appointment, len(s.appointments))
	for i, a := range s.appointments {
		out[i] = a.Clone()
	}
	return out
}

func (s *Store) AppointmentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.appointments)
}

func (s *Store) AppointmentByID(id string) (model.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appointments {
		if a.ID == id {
			return a.Clone(), true
		}
	}
	return model.Appointment{}, false
}

// ReplaceAppointments swaps the whole collection in one write. The reminder
// scheduler uses this to apply a tick's batch as a single mutation.
func (s *Store) ReplaceAppointments(appointments []model.Appointment) {
	s.mu.Lock()
	s.appointments = make([]model.Appointment, len(appointments))
	for i, a := range appointments {
		s.appointments[i] = a.Clone()
	}
	fn := s.markDirtyLocked()
	s.mu.Unlock()
	notify(fn)
}

// UpsertAppointment inserts or replaces one appointment by id, rebuilding
// the collection (replace-on-write, matching the persisted-document model).
func (s *Store) UpsertAppointment(appt model.Appointment) {
	s.mu.Lock()
	next := make([]model.Appointment, 0, len(s.appointments)+1)
	replaced := false
	for _, a := range s.appointments {
		if a.ID == appt.ID {
			next = append(next, appt.Clone())
			replaced = true
			continue
		}
		next = append(next, a)
	}
	if !replaced {
		next = append(next, appt.Clone())
	}
	s.appointments = next
	fn := s.markDirtyLocked()
	s.mu.Unlock()
	notify(fn)
}

// ClearAppointments discards every appointment. Individual hard deletes are
// not supported; bulk clear is the only destructive appointment operation.
func (s *Store) ClearAppointments() {
	s.mu.Lock()
	s.appointments = nil
	fn := s.markDirtyLocked()
	s.mu.Unlock()
	notify(fn)
}

// Snapshot captures the full account state for persistence.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := Document{
		Tenant:       s.tenant,
		Clients:      append([]model.Client(nil), s.clients...),
		Staff:        append([]model.Staff(nil), s.staff...),
		Services:     append([]model.Service(nil), s.services...),
		Appointments: make([]model.Appointment, len(s.appointments)),
	}
	for i, a := range s.appointments {
		doc.Appointments[i] = a.Clone()
	}
	return doc
}

// Restore replaces the whole store from a persisted document. Does not fire
// the change hook: restoring is not a user mutation and must not trigger a
// save of what was just loaded.
func (s *Store) Restore(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant = doc.Tenant.Normalize()
	s.clients = append([]model.Client(nil), doc.Clients...)
	s.staff = append([]model.Staff(nil), doc.Staff...)
	s.services = append([]model.Service(nil), doc.Services...)
	s.appointments = make([]model.Appointment, len(doc.Appointments))
	for i, a := range doc.Appointments {
		s.appointments[i] = a.Clone()
	}
	s.version++
}
