package generator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusforge/timetable-engine/internal/events"
	"github.com/campusforge/timetable-engine/internal/ledger"
	"github.com/campusforge/timetable-engine/internal/model"
	"github.com/campusforge/timetable-engine/pkg/config"
	appErrors "github.com/campusforge/timetable-engine/pkg/errors"
	"github.com/campusforge/timetable-engine/pkg/storage"
)

func trivialConfig() *model.RawConfig {
	raw := &model.RawConfig{}
	raw.TimeSlots.WorkingDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	for i := 1; i <= 5; i++ {
		raw.TimeSlots.Periods = append(raw.TimeSlots.Periods, model.RawPeriod{ID: i})
	}
	raw.Rooms = []model.RawRoom{{RoomID: "R1", Type: "classroom", Capacity: 60}}
	raw.Faculty = []model.RawFaculty{{FacultyID: "F1", Name: "Asha Rao", Subjects: []string{"CS201"}}}
	raw.Subjects = []model.RawSubject{{SubjectID: "CS201", Type: "Theory", LecturesPerWeek: 1}}
	raw.Sections = []model.RawSection{{SectionID: "SEC-A", Name: "Section A", StudentCount: 50}}
	raw.GeneticAlgorithmParams.PopulationSize = 10
	raw.GeneticAlgorithmParams.Generations = 30
	return raw
}

func TestGenerateTrivialFeasible(t *testing.T) {
	svc := NewService(nil, nil, config.GAConfig{})

	out, err := svc.Generate(trivialConfig(), Options{Seed: 42}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, out.Solutions)
	assert.NotEmpty(t, out.RunID)

	best := out.Solutions[0]
	assert.Equal(t, 1, best.Rank)
	assert.Equal(t, 1600.0, best.Fitness)
	require.Len(t, best.Detailed, 1)
	for kind, count := range best.ConstraintViolations {
		assert.Zero(t, count, kind)
	}
	assert.Equal(t, 1, best.Statistics.CoverageRequired)
	assert.Equal(t, 1, best.Statistics.CoverageScheduled)
}

func TestGenerateNilConfigFails(t *testing.T) {
	svc := NewService(nil, nil, config.GAConfig{})
	_, err := svc.Generate(nil, Options{Seed: 1}, nil)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConfigurationInvalid.Code, appErr.Code)
}

func TestGenerateInfeasibleRequirement(t *testing.T) {
	raw := trivialConfig()
	raw.Subjects[0].LecturesPerWeek = 0

	svc := NewService(nil, nil, config.GAConfig{})
	_, err := svc.Generate(raw, Options{Seed: 1}, nil)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrRequirementInfeasible.Code, appErr.Code)
}

func TestGenerateDeterministicAcrossRuns(t *testing.T) {
	svc := NewService(nil, nil, config.GAConfig{})

	first, err := svc.Generate(trivialConfig(), Options{Seed: 7}, nil)
	require.NoError(t, err)
	second, err := svc.Generate(trivialConfig(), Options{Seed: 7}, nil)
	require.NoError(t, err)

	require.Equal(t, len(first.Solutions), len(second.Solutions))
	for i := range first.Solutions {
		assert.Equal(t, first.Solutions[i].Detailed, second.Solutions[i].Detailed)
		assert.Equal(t, first.Solutions[i].Fitness, second.Solutions[i].Fitness)
	}
}

func TestRepairPathThroughService(t *testing.T) {
	raw := trivialConfig()
	raw.Faculty = append(raw.Faculty, model.RawFaculty{FacultyID: "F2", Name: "Vikram Iyer", Subjects: []string{"CS201"}})

	svc := NewService(nil, nil, config.GAConfig{})
	gen, err := svc.Generate(raw, Options{Seed: 5}, nil)
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	led, err := ledger.Open(store, "")
	require.NoError(t, err)

	prior := gen.Raw.Solutions[0].Chromosome.Entries
	out, err := svc.Repair(raw, RepairInput{
		Prior: prior,
		Payload: events.Payload{Events: []events.Event{{
			Type:      string(events.KindFacultyAbsence),
			FacultyID: prior[0].FacultyID,
			StartDay:  "Monday",
			EndDay:    "Friday",
		}}},
		Seed:   5,
		Ledger: led,
	})
	require.NoError(t, err)
	assert.Len(t, out.Report.Substitutions, len(prior))
	assert.NotEmpty(t, out.Solution.Detailed)
}

func TestExportPriorRendersStoredSchedule(t *testing.T) {
	raw := trivialConfig()
	svc := NewService(nil, nil, config.GAConfig{})

	entries := []model.Entry{{
		SectionID: "SEC-A", SubjectID: "CS201", FacultyID: "F1", RoomID: "R1",
		Day: 0, Period: 1, Kind: model.EntryTheory,
	}}
	sol, err := svc.ExportPrior(raw, entries)
	require.NoError(t, err)
	require.Len(t, sol.Detailed, 1)
	assert.Equal(t, "CS201", sol.Detailed[0].SubjectID)
}
