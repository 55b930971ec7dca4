package schedule

import "github.com/serviceflow/schedcore/internal/model"

// HasConflict reports whether the candidate overlaps an existing
// non-cancelled appointment for the same staff member.
//
// A candidate without staff, start or end is never a conflict: incomplete
// drafts degrade to a no-op here because required-field validation runs
// separately before any save. The candidate's own id is excluded so
// edit-in-place does not collide with itself.
func HasConflict(candidate model.Appointment, existing []model.Appointment) bool {
	if candidate.StaffID == "" || candidate.StartTime.IsZero() || candidate.EndTime.IsZero() {
		return false
	}
	for _, a := range existing {
		if a.StaffID != candidate.StaffID {
			continue
		}
		if a.Status == model.StatusCancelled {
			continue
		}
		if candidate.ID != "" && a.ID == candidate.ID {
			continue
		}
		// Half-open intervals: [start,end) overlaps [a.Start,a.End) iff
		// start < a.End && a.Start < end. Touching endpoints are compatible.
		if candidate.StartTime.Before(a.EndTime) && a.StartTime.Before(candidate.EndTime) {
			return true
		}
	}
	return false
}
