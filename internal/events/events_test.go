package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusforge/timetable-engine/internal/model"
)

func testCatalog(t *testing.T) *model.Catalog {
	t.Helper()
	raw := &model.RawConfig{}
	raw.TimeSlots.WorkingDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	for i := 1; i <= 6; i++ {
		raw.TimeSlots.Periods = append(raw.TimeSlots.Periods, model.RawPeriod{ID: i})
	}
	raw.TimeSlots.BreakPeriods = []int{4}
	raw.Rooms = []model.RawRoom{{RoomID: "R1", Type: "classroom", Capacity: 60}}
	raw.Faculty = []model.RawFaculty{{FacultyID: "F1", Name: "Asha Rao", Subjects: []string{"CS201"}}}
	raw.Subjects = []model.RawSubject{{SubjectID: "CS201", Type: "Theory", LecturesPerWeek: 1}}
	raw.Sections = []model.RawSection{{SectionID: "SEC-A", StudentCount: 50}}
	cat, err := model.NewCatalog(raw)
	require.NoError(t, err)
	return cat
}

func TestApplyFacultyAbsenceMasksDeclaredSlots(t *testing.T) {
	cat := testCatalog(t)
	res := Apply(cat, Payload{Events: []Event{{
		Type:      string(KindFacultyPartialAbsence),
		FacultyID: "F1",
		StartDay:  "Monday",
		Timeslots: []int{2, 5},
	}}})

	require.Empty(t, res.Unresolved)
	f := res.Catalog.Faculty["F1"]
	assert.True(t, f.Unavailable.Has(model.Slot{Day: 0, Period: 2}))
	assert.True(t, f.Unavailable.Has(model.Slot{Day: 0, Period: 5}))
	assert.False(t, f.Unavailable.Has(model.Slot{Day: 0, Period: 3}))
	assert.False(t, f.Unavailable.Has(model.Slot{Day: 1, Period: 2}))

	// The source catalog stays untouched.
	assert.Empty(t, cat.Faculty["F1"].Unavailable)
}

func TestApplyDefaultsToAllNonBreakPeriods(t *testing.T) {
	cat := testCatalog(t)
	res := Apply(cat, Payload{Events: []Event{{
		Type:      string(KindFacultyAbsence),
		FacultyID: "F1",
		StartDay:  "Tue",
	}}})

	require.Empty(t, res.Unresolved)
	f := res.Catalog.Faculty["F1"]
	for _, p := range []int{1, 2, 3, 5, 6} {
		assert.True(t, f.Unavailable.Has(model.Slot{Day: 1, Period: p}), "period %d", p)
	}
	assert.False(t, f.Unavailable.Has(model.Slot{Day: 1, Period: 4}), "break period stays unmasked")
}

func TestApplyDayRange(t *testing.T) {
	cat := testCatalog(t)
	res := Apply(cat, Payload{Events: []Event{{
		Type:      string(KindRoomMaintenance),
		RoomID:    "R1",
		StartDay:  "Monday",
		EndDay:    "Wednesday",
		Timeslots: []int{1},
	}}})

	require.Empty(t, res.Unresolved)
	room := res.Catalog.Rooms["R1"]
	for day := 0; day <= 2; day++ {
		assert.True(t, room.Unavailable.Has(model.Slot{Day: day, Period: 1}))
	}
	assert.False(t, room.Unavailable.Has(model.Slot{Day: 3, Period: 1}))
}

func TestApplyIsIdempotent(t *testing.T) {
	cat := testCatalog(t)
	ev := Event{Type: string(KindResourceUnavailable), RoomID: "R1", StartDay: "Monday", Timeslots: []int{1, 2}}

	once := Apply(cat, Payload{Events: []Event{ev}})
	twice := Apply(cat, Payload{Events: []Event{ev, ev}})

	assert.Equal(t, once.Catalog.Rooms["R1"].Unavailable, twice.Catalog.Rooms["R1"].Unavailable)
}

func TestApplySectionUnavailable(t *testing.T) {
	cat := testCatalog(t)
	res := Apply(cat, Payload{Events: []Event{{
		Type:      string(KindSectionUnavailable),
		SectionID: "SEC-A",
		StartDay:  "Friday",
		Timeslots: []int{6},
	}}})

	require.Empty(t, res.Unresolved)
	assert.True(t, res.Catalog.Sections["SEC-A"].Unavailable.Has(model.Slot{Day: 4, Period: 6}))
}

func TestApplyForceAssignmentInjectsLock(t *testing.T) {
	cat := testCatalog(t)
	res := Apply(cat, Payload{Events: []Event{{
		Type:      string(KindForceAssignment),
		FacultyID: "F1",
		SubjectID: "CS201",
		SectionID: "SEC-A",
		Day:       "Wednesday",
		Period:    3,
		RoomID:    "R1",
	}}})

	require.Empty(t, res.Unresolved)
	require.Len(t, res.Catalog.FixedAssignments, 1)
	fa := res.Catalog.FixedAssignments[0]
	assert.Equal(t, 2, fa.Day)
	assert.Equal(t, 3, fa.Period)
	assert.Equal(t, "F1", fa.FacultyID)
	assert.Empty(t, cat.FixedAssignments)
}

func TestApplyUnknownEntityIsReportedNotFatal(t *testing.T) {
	cat := testCatalog(t)
	res := Apply(cat, Payload{Events: []Event{
		{Type: string(KindFacultyAbsence), FacultyID: "GHOST", StartDay: "Monday"},
		{Type: string(KindRoomMaintenance), RoomID: "R1", StartDay: "Monday", Timeslots: []int{1}},
	}})

	require.Len(t, res.Unresolved, 1)
	assert.Equal(t, 0, res.Unresolved[0].Index)
	assert.True(t, res.Catalog.Rooms["R1"].Unavailable.Has(model.Slot{Day: 0, Period: 1}))
}

func TestApplyUnknownDayAndTypeAreReported(t *testing.T) {
	cat := testCatalog(t)
	res := Apply(cat, Payload{Events: []Event{
		{Type: string(KindFacultyAbsence), FacultyID: "F1", StartDay: "Sunday"},
		{Type: "snow_day"},
	}})

	require.Len(t, res.Unresolved, 2)
	assert.Contains(t, res.Unresolved[1].Reason, "snow_day")
}

func TestForbiddenPeriodsUnionsBreaksAndPreferences(t *testing.T) {
	cat := testCatalog(t)
	ev := Event{Preferences: Preferences{ForbiddenPeriods: []int{1}, AvoidPeriods: []int{6}}}

	forbidden := ForbiddenPeriods(cat, ev)
	assert.True(t, forbidden[1])
	assert.True(t, forbidden[4]) // break period
	assert.True(t, forbidden[6])
	assert.False(t, forbidden[2])
}
