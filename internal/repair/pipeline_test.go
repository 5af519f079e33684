package repair

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusforge/timetable-engine/internal/events"
	"github.com/campusforge/timetable-engine/internal/ledger"
	"github.com/campusforge/timetable-engine/internal/model"
	"github.com/campusforge/timetable-engine/internal/requirement"
	"github.com/campusforge/timetable-engine/pkg/storage"
)

type repairFixture struct {
	cat   *model.Catalog
	bag   *requirement.Bag
	led   *ledger.Ledger
	store *storage.LocalStorage
}

func newRepairFixture(t *testing.T, mutate func(*model.RawConfig)) *repairFixture {
	t.Helper()
	raw := &model.RawConfig{}
	raw.TimeSlots.WorkingDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	for i := 1; i <= 6; i++ {
		raw.TimeSlots.Periods = append(raw.TimeSlots.Periods, model.RawPeriod{ID: i})
	}
	raw.Rooms = []model.RawRoom{{RoomID: "R1", Type: "classroom", Capacity: 60}}
	raw.Faculty = []model.RawFaculty{{FacultyID: "F1", Name: "Asha Rao", Subjects: []string{"CS201"}}}
	raw.Subjects = []model.RawSubject{{SubjectID: "CS201", Type: "Theory", LecturesPerWeek: 2}}
	raw.Sections = []model.RawSection{{SectionID: "SEC-A", StudentCount: 50}}
	if mutate != nil {
		mutate(raw)
	}
	cat, err := model.NewCatalog(raw)
	require.NoError(t, err)
	bag, err := requirement.Build(cat, nil)
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	led, err := ledger.Open(store, "")
	require.NoError(t, err)

	return &repairFixture{cat: cat, bag: bag, led: led, store: store}
}

func (f *repairFixture) pipeline() *Pipeline {
	params := DefaultParams()
	params.Evolve.Generations = 30
	params.Evolve.PopulationSize = 10
	return New(f.cat, f.bag, f.led, params, nil)
}

func theoryEntry(section, faculty, room string, day, period int) model.Entry {
	return model.Entry{
		SectionID: section, SubjectID: "CS201", FacultyID: faculty, RoomID: room,
		Day: day, Period: period, Kind: model.EntryTheory,
	}
}

func TestRepairIdentityWithNoEvents(t *testing.T) {
	f := newRepairFixture(t, nil)
	prior := []model.Entry{
		theoryEntry("SEC-A", "F1", "R1", 0, 1),
		theoryEntry("SEC-A", "F1", "R1", 1, 2),
	}

	result, err := f.pipeline().Run(prior, events.Payload{}, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)

	assert.Empty(t, result.Report.Shifted)
	assert.Empty(t, result.Report.Substitutions)
	assert.Empty(t, result.Report.Unassigned)
	assert.ElementsMatch(t, prior, result.Chromosome.Entries)
	assert.Empty(t, f.led.Snapshot())
}

func TestRepairDeterministicShift(t *testing.T) {
	f := newRepairFixture(t, nil)
	prior := []model.Entry{
		theoryEntry("SEC-A", "F1", "R1", 0, 2),
		theoryEntry("SEC-A", "F1", "R1", 0, 5),
	}

	payload := events.Payload{Events: []events.Event{{
		Type:      string(events.KindFacultyPartialAbsence),
		FacultyID: "F1",
		StartDay:  "Monday",
		Timeslots: []int{2, 5},
		Preferences: events.Preferences{
			PreferShift:      true,
			ForbiddenPeriods: []int{4},
		},
	}}}

	result, err := f.pipeline().Run(prior, payload, rand.New(rand.NewSource(2)), nil)
	require.NoError(t, err)

	require.Len(t, result.Report.Shifted, 2)
	assert.Empty(t, result.Report.Substitutions)
	assert.Empty(t, result.Report.Unassigned)

	originals := map[int]bool{}
	for _, sh := range result.Report.Shifted {
		originals[sh.OriginalPeriod] = true
		assert.Equal(t, 0, sh.Day)
		assert.NotEqual(t, sh.OriginalPeriod, sh.NewPeriod)
		assert.NotEqual(t, 4, sh.NewPeriod, "forbidden period must not be used")
		assert.NotContains(t, []int{2, 5}, sh.NewPeriod, "absence window must not be reused")
	}
	assert.Equal(t, map[int]bool{2: true, 5: true}, originals)

	// No substitutions happened, so the fairness ledger is untouched.
	assert.Empty(t, f.led.Snapshot())

	// The schedule still holds both classes on Monday, moved.
	require.Len(t, result.Chromosome.Entries, 2)
	for _, e := range result.Chromosome.Entries {
		assert.Equal(t, "F1", e.FacultyID)
		assert.Equal(t, 0, e.Day)
		assert.NotContains(t, []int{2, 5}, e.Period)
	}
}

func TestRepairSubstitutionFairness(t *testing.T) {
	f := newRepairFixture(t, func(raw *model.RawConfig) {
		raw.Faculty = append(raw.Faculty,
			model.RawFaculty{FacultyID: "F2", Name: "Vikram Iyer", Subjects: []string{"CS201"}},
			model.RawFaculty{FacultyID: "F3", Name: "Meera Pillai", Subjects: []string{"CS201"}},
		)
	})
	f.led.Increment("F3", 5)
	require.NoError(t, f.led.Persist())

	prior := []model.Entry{
		theoryEntry("SEC-A", "F1", "R1", 0, 1),
		theoryEntry("SEC-A", "F1", "R1", 0, 3),
	}

	payload := events.Payload{Events: []events.Event{{
		Type:      string(events.KindFacultyAbsence),
		FacultyID: "F1",
		StartDay:  "Monday",
	}}}

	result, err := f.pipeline().Run(prior, payload, rand.New(rand.NewSource(3)), nil)
	require.NoError(t, err)

	require.NotEmpty(t, result.Report.Substitutions)
	for _, sub := range result.Report.Substitutions {
		assert.Equal(t, "F1", sub.OriginalFaculty)
		assert.Equal(t, "F2", sub.NewFaculty, "least-loaded substitute must win")
	}

	snapshot := f.led.Snapshot()
	assert.Equal(t, len(result.Report.Substitutions), snapshot["F2"])
	assert.Equal(t, 5, snapshot["F3"])
}

func TestRepairImpossibleSubstitutionReportsUnassigned(t *testing.T) {
	f := newRepairFixture(t, nil) // F1 is the only qualified faculty
	prior := []model.Entry{theoryEntry("SEC-A", "F1", "R1", 0, 1)}

	payload := events.Payload{Events: []events.Event{{
		Type:      string(events.KindFacultyAbsence),
		FacultyID: "F1",
		StartDay:  "Monday",
		EndDay:    "Friday",
	}}}

	result, err := f.pipeline().Run(prior, payload, rand.New(rand.NewSource(4)), nil)
	require.NoError(t, err)

	require.Len(t, result.Report.Unassigned, 1)
	assert.Equal(t, "SEC-A", result.Report.Unassigned[0].SectionID)
	assert.Empty(t, result.Report.Substitutions)
	assert.Empty(t, f.led.Snapshot())

	// No entry may remain on the absent faculty inside the window.
	for _, e := range result.Chromosome.Entries {
		assert.NotEqual(t, "F1", e.FacultyID)
	}
}

func TestRepairUnresolvedEventsSurfaceInReport(t *testing.T) {
	f := newRepairFixture(t, nil)
	prior := []model.Entry{theoryEntry("SEC-A", "F1", "R1", 0, 1)}

	payload := events.Payload{Events: []events.Event{
		{Type: "volcano_day"},
		{Type: string(events.KindFacultyAbsence), FacultyID: "NOPE", StartDay: "Monday"},
	}}

	result, err := f.pipeline().Run(prior, payload, rand.New(rand.NewSource(5)), nil)
	require.NoError(t, err)
	assert.Len(t, result.Report.UnresolvedEvents, 2)
	assert.ElementsMatch(t, prior, result.Chromosome.Entries)
}

func TestRepairSameSubstitutePerSection(t *testing.T) {
	f := newRepairFixture(t, func(raw *model.RawConfig) {
		raw.Faculty = append(raw.Faculty,
			model.RawFaculty{FacultyID: "F2", Name: "Vikram Iyer", Subjects: []string{"CS201"}},
			model.RawFaculty{FacultyID: "F3", Name: "Meera Pillai", Subjects: []string{"CS201"}},
		)
	})

	prior := []model.Entry{
		theoryEntry("SEC-A", "F1", "R1", 0, 1),
		theoryEntry("SEC-A", "F1", "R1", 0, 3),
	}

	payload := events.Payload{Events: []events.Event{{
		Type:        string(events.KindFacultyAbsence),
		FacultyID:   "F1",
		StartDay:    "Monday",
		Preferences: events.Preferences{SameSubstitutePerSection: true},
	}}}

	result, err := f.pipeline().Run(prior, payload, rand.New(rand.NewSource(6)), nil)
	require.NoError(t, err)

	require.Len(t, result.Report.Substitutions, 2)
	assert.Equal(t, result.Report.Substitutions[0].NewFaculty, result.Report.Substitutions[1].NewFaculty)
}
