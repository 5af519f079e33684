package render

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusforge/timetable-engine/internal/chromosome"
	"github.com/campusforge/timetable-engine/internal/export"
	"github.com/campusforge/timetable-engine/internal/model"
)

func testSolution(t *testing.T) (export.Solution, *model.Catalog) {
	t.Helper()
	raw := &model.RawConfig{}
	raw.TimeSlots.WorkingDays = []string{"Monday", "Tuesday"}
	raw.TimeSlots.Periods = []model.RawPeriod{
		{ID: 1, StartTime: "09:00", EndTime: "10:00"},
		{ID: 2, StartTime: "10:00", EndTime: "11:00"},
	}
	raw.Rooms = []model.RawRoom{{RoomID: "R1", Name: "Room 1", Type: "classroom", Capacity: 60}}
	raw.Faculty = []model.RawFaculty{{FacultyID: "F1", Name: "Asha Rao", Subjects: []string{"CS201"}}}
	raw.Subjects = []model.RawSubject{{SubjectID: "CS201", Name: "Data Structures", Type: "Theory", LecturesPerWeek: 1}}
	raw.Sections = []model.RawSection{{SectionID: "SEC-A", Name: "Section A", StudentCount: 50}}
	cat, err := model.NewCatalog(raw)
	require.NoError(t, err)

	ch := chromosome.New(cat)
	ch.Add(model.Entry{SectionID: "SEC-A", SubjectID: "CS201", FacultyID: "F1", RoomID: "R1", Day: 0, Period: 1, Kind: model.EntryTheory})
	return export.New(cat).Build(ch, 1, 1600, 1, 0), cat
}

func TestDetailedCSV(t *testing.T) {
	sol, _ := testSolution(t)
	data, err := DetailedCSV(sol)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "section_id", records[0][0])
	assert.Equal(t, "SEC-A", records[1][0])
	assert.Equal(t, "Data Structures", records[1][3])
}

func TestRenderSectionsProducesPDF(t *testing.T) {
	sol, cat := testSolution(t)
	data, err := NewPDF(cat).RenderSections(sol, "Weekly Timetable")
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderFacultyProducesPDF(t *testing.T) {
	sol, cat := testSolution(t)
	data, err := NewPDF(cat).RenderFaculty(sol, "Faculty Timetable")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
