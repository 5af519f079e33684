// Package events translates repair-request events into mutations of
// a working Catalog: appended unavailability-mask entries and
// injected locked assignments. Applying an event never fails loud;
// an event referencing an unknown entity or day is recorded in the
// Result's Unresolved list and otherwise ignored, so the rest of the
// batch still proceeds.
package events

import (
	"fmt"
	"strings"

	"github.com/campusforge/timetable-engine/internal/model"
)

// Kind enumerates the recognised event discriminators.
type Kind string

const (
	KindFacultyAbsence        Kind = "faculty_absence"
	KindFacultyPartialAbsence Kind = "faculty_partial_absence"
	KindResourceUnavailable   Kind = "resource_unavailable"
	KindRoomMaintenance       Kind = "room_maintenance"
	KindSectionUnavailable    Kind = "section_unavailable"
	KindForceAssignment       Kind = "force_assignment"
)

// Preferences carries the per-event repair hints read by the repair
// pipeline.
type Preferences struct {
	PreferShift              bool  `json:"prefer_shift"`
	SameSubstitutePerSection bool  `json:"same_substitute_per_section"`
	ForbiddenPeriods         []int `json:"forbidden_periods"`
	AvoidPeriods             []int `json:"avoid_periods"`
}

// Event is one disruptive occurrence in a repair request.
type Event struct {
	Type        string      `json:"type" validate:"required"`
	FacultyID   string      `json:"faculty_id"`
	RoomID      string      `json:"room_id"`
	SectionID   string      `json:"section_id"`
	SubjectID   string      `json:"subject_id"`
	StartDay    string      `json:"start_day"`
	EndDay      string      `json:"end_day"`
	Timeslots   []int       `json:"timeslots"`
	Day         string      `json:"day"`
	Period      int         `json:"period"`
	Preferences Preferences `json:"preferences"`
}

// Payload is the repair request's event batch.
type Payload struct {
	Events []Event `json:"events" validate:"dive"`
}

// Unresolved records one event the applier could not act on, and why.
type Unresolved struct {
	Index  int    `json:"index"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// Result is the outcome of applying one event batch.
type Result struct {
	Catalog    *model.Catalog
	Unresolved []Unresolved
}

// Apply deep-copies cat and applies every event in order, returning
// the mutated copy plus any unresolved events. The caller's catalog
// is never touched.
func Apply(cat *model.Catalog, payload Payload) *Result {
	working := cat.Clone()
	res := &Result{Catalog: working}

	for i, ev := range payload.Events {
		if err := applyOne(working, ev); err != nil {
			res.Unresolved = append(res.Unresolved, Unresolved{Index: i, Type: ev.Type, Reason: err.Error()})
		}
	}
	return res
}

// IsUnavailabilityEvent reports whether ev marks some entity (faculty,
// room, or section) unavailable for a window, as opposed to
// force_assignment which injects a lock instead.
func IsUnavailabilityEvent(ev Event) bool {
	switch Kind(ev.Type) {
	case KindFacultyAbsence, KindFacultyPartialAbsence, KindResourceUnavailable, KindRoomMaintenance, KindSectionUnavailable:
		return true
	default:
		return false
	}
}

// AffectedKind names which occupancy key an unavailability event
// blocks: "faculty", "room", or "section".
func AffectedKind(ev Event) (kind, entityID string) {
	switch Kind(ev.Type) {
	case KindFacultyAbsence, KindFacultyPartialAbsence:
		return "faculty", ev.FacultyID
	case KindResourceUnavailable, KindRoomMaintenance:
		return "room", ev.RoomID
	case KindSectionUnavailable:
		return "section", ev.SectionID
	default:
		return "", ""
	}
}

func applyOne(cat *model.Catalog, ev Event) error {
	switch Kind(ev.Type) {
	case KindFacultyAbsence, KindFacultyPartialAbsence:
		f, ok := cat.Faculty[ev.FacultyID]
		if !ok {
			return fmt.Errorf("unknown faculty %q", ev.FacultyID)
		}
		slots, err := ResolveSlots(cat, ev)
		if err != nil {
			return err
		}
		for _, sl := range slots {
			f.Unavailable.Add(sl)
		}
		return nil

	case KindResourceUnavailable, KindRoomMaintenance:
		r, ok := cat.Rooms[ev.RoomID]
		if !ok {
			return fmt.Errorf("unknown room %q", ev.RoomID)
		}
		slots, err := ResolveSlots(cat, ev)
		if err != nil {
			return err
		}
		for _, sl := range slots {
			r.Unavailable.Add(sl)
		}
		return nil

	case KindSectionUnavailable:
		s, ok := cat.Sections[ev.SectionID]
		if !ok {
			return fmt.Errorf("unknown section %q", ev.SectionID)
		}
		slots, err := ResolveSlots(cat, ev)
		if err != nil {
			return err
		}
		for _, sl := range slots {
			s.Unavailable.Add(sl)
		}
		return nil

	case KindForceAssignment:
		if _, ok := cat.Faculty[ev.FacultyID]; !ok {
			return fmt.Errorf("unknown faculty %q", ev.FacultyID)
		}
		if _, ok := cat.Sections[ev.SectionID]; !ok {
			return fmt.Errorf("unknown section %q", ev.SectionID)
		}
		if _, ok := cat.Subjects[ev.SubjectID]; !ok {
			return fmt.Errorf("unknown subject %q", ev.SubjectID)
		}
		day, ok := model.ResolveDayIndex(cat.WorkingDays, ev.Day)
		if !ok {
			return fmt.Errorf("unknown day %q", ev.Day)
		}
		cat.FixedAssignments = append(cat.FixedAssignments, model.FixedAssignment{
			FacultyID: ev.FacultyID,
			SubjectID: ev.SubjectID,
			SectionID: ev.SectionID,
			Day:       day,
			Period:    ev.Period,
			RoomID:    ev.RoomID,
		})
		return nil

	default:
		return fmt.Errorf("unrecognised event type %q", ev.Type)
	}
}

// ResolveSlots expands an event's day range and period list into the
// concrete slots it covers: every non-break period when Timeslots is
// omitted.
func ResolveSlots(cat *model.Catalog, ev Event) ([]model.Slot, error) {
	days, ok := model.DayRange(cat.WorkingDays, ev.StartDay, ev.EndDay)
	if !ok {
		return nil, fmt.Errorf("unknown day range %q..%q", ev.StartDay, ev.EndDay)
	}
	periods := ev.Timeslots
	if len(periods) == 0 {
		for _, p := range cat.Periods {
			if !cat.IsBreakPeriod(p.ID) {
				periods = append(periods, p.ID)
			}
		}
	}
	slots := make([]model.Slot, 0, len(days)*len(periods))
	for _, d := range days {
		for _, p := range periods {
			slots = append(slots, model.Slot{Day: d, Period: p})
		}
	}
	return slots, nil
}

// ForbiddenPeriods unions an event's forbidden/avoid period lists
// with the catalog's break/lunch/mentorship periods, the set the
// deterministic shift must never land on.
func ForbiddenPeriods(cat *model.Catalog, ev Event) map[int]bool {
	forbidden := make(map[int]bool, len(cat.BreakPeriods))
	for p := range cat.BreakPeriods {
		forbidden[p] = true
	}
	for _, p := range ev.Preferences.ForbiddenPeriods {
		forbidden[p] = true
	}
	for _, p := range ev.Preferences.AvoidPeriods {
		forbidden[p] = true
	}
	return forbidden
}

// Describe renders a short human-readable label for an event, used in
// logging and in the repair report's diagnostics.
func Describe(ev Event) string {
	var b strings.Builder
	b.WriteString(ev.Type)
	if ev.FacultyID != "" {
		fmt.Fprintf(&b, " faculty=%s", ev.FacultyID)
	}
	if ev.RoomID != "" {
		fmt.Fprintf(&b, " room=%s", ev.RoomID)
	}
	if ev.SectionID != "" {
		fmt.Fprintf(&b, " section=%s", ev.SectionID)
	}
	return b.String()
}
