package chromosome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusforge/timetable-engine/internal/model"
)

func testCatalog(t *testing.T) *model.Catalog {
	t.Helper()
	raw := &model.RawConfig{}
	raw.TimeSlots.WorkingDays = []string{"Monday", "Tuesday", "Wednesday"}
	for i := 1; i <= 6; i++ {
		raw.TimeSlots.Periods = append(raw.TimeSlots.Periods, model.RawPeriod{ID: i})
	}
	raw.TimeSlots.BreakPeriods = []int{4}
	raw.Rooms = []model.RawRoom{
		{RoomID: "R1", Type: "classroom", Capacity: 60},
		{RoomID: "R2", Type: "classroom", Capacity: 60},
	}
	raw.Faculty = []model.RawFaculty{
		{FacultyID: "F1", Name: "Asha Rao", Subjects: []string{"CS201"}},
		{FacultyID: "F2", Name: "Vikram Iyer", Subjects: []string{"CS202"}},
	}
	raw.Subjects = []model.RawSubject{
		{SubjectID: "CS201", Type: "Theory", LecturesPerWeek: 2},
		{SubjectID: "CS202", Type: "Theory", LecturesPerWeek: 2},
	}
	raw.Sections = []model.RawSection{
		{SectionID: "SEC-A", StudentCount: 50},
		{SectionID: "SEC-B", StudentCount: 50},
	}
	cat, err := model.NewCatalog(raw)
	require.NoError(t, err)
	return cat
}

func entry(section, subject, faculty, room string, day, period int) model.Entry {
	return model.Entry{
		SectionID: section, SubjectID: subject, FacultyID: faculty, RoomID: room,
		Day: day, Period: period, Kind: model.EntryTheory,
	}
}

func TestCanPlaceRejectsBreakPeriod(t *testing.T) {
	ch := New(testCatalog(t))
	assert.False(t, ch.CanPlace(entry("SEC-A", "CS201", "F1", "R1", 0, 4)))
	assert.True(t, ch.CanPlace(entry("SEC-A", "CS201", "F1", "R1", 0, 1)))
}

func TestAddMaintainsOccupancy(t *testing.T) {
	ch := New(testCatalog(t))
	ch.Add(entry("SEC-A", "CS201", "F1", "R1", 0, 1))

	// Same faculty, same slot, other section and room.
	assert.False(t, ch.CanPlace(entry("SEC-B", "CS201", "F1", "R2", 0, 1)))
	// Same room, same slot.
	assert.False(t, ch.CanPlace(entry("SEC-B", "CS202", "F2", "R1", 0, 1)))
	// Same section, same slot.
	assert.False(t, ch.CanPlace(entry("SEC-A", "CS202", "F2", "R2", 0, 1)))
	// Everything distinct.
	assert.True(t, ch.CanPlace(entry("SEC-B", "CS202", "F2", "R2", 0, 1)))
}

func TestAddRecordsAssignmentAndWorkload(t *testing.T) {
	ch := New(testCatalog(t))
	ch.Add(entry("SEC-A", "CS201", "F1", "R1", 0, 1))
	ch.Add(entry("SEC-A", "CS201", "F1", "R1", 1, 1))

	got, ok := ch.AssignedFaculty("SEC-A", "CS201")
	require.True(t, ok)
	assert.Equal(t, "F1", got)
	assert.Equal(t, 2, ch.WorkloadOf("F1"))
}

func TestRemoveWhereUpdatesIndexAndWorkload(t *testing.T) {
	ch := New(testCatalog(t))
	e := entry("SEC-A", "CS201", "F1", "R1", 0, 1)
	ch.Add(e)

	removed := ch.RemoveWhere(func(x model.Entry) bool { return x.Day == 0 && x.Period == 1 })
	require.Len(t, removed, 1)
	assert.Equal(t, 0, ch.WorkloadOf("F1"))
	assert.True(t, ch.CanPlace(e))
}

func TestCanPlaceLabPairChecksWholeWindow(t *testing.T) {
	ch := New(testCatalog(t))
	assert.True(t, ch.CanPlaceLabPair("SEC-A", "CS201", "F1", "R1", 0, 1, 2))

	ch.Add(entry("SEC-A", "CS202", "F2", "R2", 0, 2))
	assert.False(t, ch.CanPlaceLabPair("SEC-A", "CS201", "F1", "R1", 0, 1, 2))
}

func TestCanPlaceGroupMemberSharesSectionSlot(t *testing.T) {
	ch := New(testCatalog(t))
	first := model.Entry{
		SectionID: "SEC-A", SubjectID: "CS201", FacultyID: "F1", RoomID: "R1",
		Day: 0, Period: 1, Kind: model.EntryElective, ElectiveGroupID: "SEC-A::elective",
	}
	ch.Add(first)

	second := model.Entry{
		SectionID: "SEC-A", SubjectID: "CS202", FacultyID: "F2", RoomID: "R2",
		Day: 0, Period: 1, Kind: model.EntryElective, ElectiveGroupID: "SEC-A::elective",
	}
	assert.True(t, ch.CanPlaceGroupMember(second))

	// A different room or faculty still has to be free.
	sameRoom := second
	sameRoom.RoomID = "R1"
	assert.False(t, ch.CanPlaceGroupMember(sameRoom))

	// A non-elective never shares the slot.
	assert.False(t, ch.CanPlace(entry("SEC-A", "CS202", "F2", "R2", 0, 1)))
}

func TestCloneIsIndependent(t *testing.T) {
	ch := New(testCatalog(t))
	ch.Add(entry("SEC-A", "CS201", "F1", "R1", 0, 1))

	clone := ch.Clone()
	clone.Add(entry("SEC-B", "CS202", "F2", "R2", 0, 2))

	assert.Len(t, ch.Entries, 1)
	assert.Len(t, clone.Entries, 2)
	assert.True(t, ch.CanPlace(entry("SEC-B", "CS202", "F2", "R2", 0, 2)))
}

func TestFromEntriesReplaysState(t *testing.T) {
	cat := testCatalog(t)
	entries := []model.Entry{
		entry("SEC-A", "CS201", "F1", "R1", 0, 1),
		entry("SEC-A", "CS201", "F1", "R1", 1, 2),
	}
	ch := FromEntries(cat, entries)

	assert.Len(t, ch.Entries, 2)
	assert.Equal(t, 2, ch.WorkloadOf("F1"))
	assert.False(t, ch.CanPlace(entry("SEC-B", "CS202", "F1", "R2", 0, 1)))
}

func TestSortedEntriesOrder(t *testing.T) {
	ch := New(testCatalog(t))
	ch.Add(entry("SEC-B", "CS202", "F2", "R2", 0, 2))
	ch.Add(entry("SEC-A", "CS201", "F1", "R1", 1, 1))
	ch.Add(entry("SEC-A", "CS201", "F1", "R1", 0, 3))

	sorted := ch.SortedEntries()
	assert.Equal(t, "SEC-A", sorted[0].SectionID)
	assert.Equal(t, 0, sorted[0].Day)
	assert.Equal(t, "SEC-A", sorted[1].SectionID)
	assert.Equal(t, 1, sorted[1].Day)
	assert.Equal(t, "SEC-B", sorted[2].SectionID)
}
