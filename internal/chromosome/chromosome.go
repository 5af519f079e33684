// Package chromosome holds a candidate complete schedule: an entry
// list, its occupancy index, and the bookkeeping the variation and
// constraint packages need to mutate and score it cheaply.
package chromosome

import (
	"sort"

	"github.com/campusforge/timetable-engine/internal/model"
)

// occupancyKey identifies one (resource, day, period) triple. kind
// distinguishes faculty/room/section ids that might otherwise
// collide across namespaces.
type occupancyKey struct {
	kind   string
	id     string
	day    int
	period int
}

// Chromosome is a candidate schedule plus its derived indices: the
// occupancy index, the (section, subject) -> faculty mapping, the
// per-faculty week workload counter, and the cached score.
type Chromosome struct {
	Cat     *model.Catalog
	Entries []model.Entry

	occupancy  map[occupancyKey]int // value is the index into Entries
	assignment map[string]string    // "section\x00subject" -> faculty id
	workload   map[string]int       // faculty id -> scheduled non-continuation entries

	Fitness    float64
	Violations map[string]int
	scored     bool
}

// New builds an empty chromosome bound to cat.
func New(cat *model.Catalog) *Chromosome {
	return &Chromosome{
		Cat:        cat,
		occupancy:  make(map[occupancyKey]int),
		assignment: make(map[string]string),
		workload:   make(map[string]int),
		Violations: make(map[string]int),
	}
}

func assignmentKey(sectionID, subjectID string) string {
	return sectionID + "\x00" + subjectID
}

// WorkloadOf implements resolver.WorkloadSource.
func (c *Chromosome) WorkloadOf(facultyID string) int {
	return c.workload[facultyID]
}

// AssignedFaculty returns the faculty previously assigned to
// (sectionID, subjectID) in this chromosome, if any. One teacher per
// section-subject pair holds for the whole week.
func (c *Chromosome) AssignedFaculty(sectionID, subjectID string) (string, bool) {
	id, ok := c.assignment[assignmentKey(sectionID, subjectID)]
	return id, ok
}

// occupied reports whether any of faculty/room/section is already
// busy at sl.
func (c *Chromosome) occupied(facultyID, roomID, sectionID string, sl model.Slot) bool {
	if facultyID != "" && facultyID != model.NoFacultyID {
		if _, ok := c.occupancy[occupancyKey{"faculty", facultyID, sl.Day, sl.Period}]; ok {
			return true
		}
	}
	if roomID != "" {
		if _, ok := c.occupancy[occupancyKey{"room", roomID, sl.Day, sl.Period}]; ok {
			return true
		}
	}
	if sectionID != "" {
		if _, ok := c.occupancy[occupancyKey{"section", sectionID, sl.Day, sl.Period}]; ok {
			return true
		}
	}
	return false
}

// CanPlace is the conflict-free predicate for a prospective single
// entry: not a break period, faculty/room/section availability masks
// permit it, and no occupancy key clashes.
func (c *Chromosome) CanPlace(e model.Entry) bool {
	sl := e.Slot()
	if c.Cat.IsBreakPeriod(sl.Period) {
		return false
	}
	if e.FacultyID != model.NoFacultyID && !c.Cat.IsFacultyAvailable(e.FacultyID, sl) {
		return false
	}
	if e.RoomID != "" && !c.Cat.IsRoomAvailable(e.RoomID, sl) {
		return false
	}
	if !c.Cat.IsSectionAvailable(e.SectionID, sl) {
		return false
	}
	return !c.occupied(e.FacultyID, e.RoomID, e.SectionID, sl)
}

// CanPlaceGroupMember is CanPlace relaxed for elective group members:
// a section-occupancy clash is tolerated when the occupying entry is
// an elective of the same group, so every member of a group can share
// the section's elective slot while faculty and room stay exclusive.
func (c *Chromosome) CanPlaceGroupMember(e model.Entry) bool {
	if e.Kind != model.EntryElective || e.ElectiveGroupID == "" {
		return c.CanPlace(e)
	}
	sl := e.Slot()
	if c.Cat.IsBreakPeriod(sl.Period) {
		return false
	}
	if e.FacultyID != model.NoFacultyID && !c.Cat.IsFacultyAvailable(e.FacultyID, sl) {
		return false
	}
	if e.RoomID != "" && !c.Cat.IsRoomAvailable(e.RoomID, sl) {
		return false
	}
	if !c.Cat.IsSectionAvailable(e.SectionID, sl) {
		return false
	}
	if e.FacultyID != "" && e.FacultyID != model.NoFacultyID {
		if _, ok := c.occupancy[occupancyKey{"faculty", e.FacultyID, sl.Day, sl.Period}]; ok {
			return false
		}
	}
	if e.RoomID != "" {
		if _, ok := c.occupancy[occupancyKey{"room", e.RoomID, sl.Day, sl.Period}]; ok {
			return false
		}
	}
	if idx, ok := c.occupancy[occupancyKey{"section", e.SectionID, sl.Day, sl.Period}]; ok {
		occ := c.Entries[idx]
		if occ.Kind != model.EntryElective || occ.ElectiveGroupID != e.ElectiveGroupID {
			return false
		}
	}
	return true
}

// CanPlaceLabPair composes CanPlace over every period a lab session
// would occupy starting at (day, startPeriod) for length n, also
// rejecting internal overlap within the run itself.
func (c *Chromosome) CanPlaceLabPair(sectionID, subjectID, facultyID, roomID string, day, startPeriod, n int) bool {
	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		period := startPeriod + i
		if seen[period] {
			return false
		}
		seen[period] = true
		e := model.Entry{SectionID: sectionID, SubjectID: subjectID, FacultyID: facultyID, RoomID: roomID, Day: day, Period: period}
		if !c.CanPlace(e) {
			return false
		}
	}
	return true
}

// Add inserts e, updating the occupancy index, assignment map, and
// workload counter atomically. It does not re-check CanPlace; callers
// that need the guarantee should call CanPlace first.
func (c *Chromosome) Add(e model.Entry) int {
	idx := len(c.Entries)
	c.Entries = append(c.Entries, e)
	c.index(idx, e)
	if e.FacultyID != "" && e.FacultyID != model.NoFacultyID {
		c.assignment[assignmentKey(e.SectionID, e.SubjectID)] = e.FacultyID
	}
	if !e.Continuation {
		c.workload[e.FacultyID]++
	}
	c.scored = false
	return idx
}

func (c *Chromosome) index(idx int, e model.Entry) {
	sl := e.Slot()
	if e.FacultyID != "" && e.FacultyID != model.NoFacultyID {
		c.occupancy[occupancyKey{"faculty", e.FacultyID, sl.Day, sl.Period}] = idx
	}
	if e.RoomID != "" {
		c.occupancy[occupancyKey{"room", e.RoomID, sl.Day, sl.Period}] = idx
	}
	if e.SectionID != "" {
		c.occupancy[occupancyKey{"section", e.SectionID, sl.Day, sl.Period}] = idx
	}
}

// RemoveWhere removes every entry matching pred, rebuilding the
// occupancy index. Entry lists top out in the low thousands, so a
// full rebuild on removal stays cheap.
func (c *Chromosome) RemoveWhere(pred func(model.Entry) bool) []model.Entry {
	kept := c.Entries[:0:0]
	var removed []model.Entry
	for _, e := range c.Entries {
		if pred(e) {
			removed = append(removed, e)
			if !e.Continuation {
				c.workload[e.FacultyID]--
			}
		} else {
			kept = append(kept, e)
		}
	}
	c.Entries = kept
	c.rebuildOccupancy()
	c.scored = false
	return removed
}

func (c *Chromosome) rebuildOccupancy() {
	c.occupancy = make(map[occupancyKey]int, len(c.Entries))
	for idx, e := range c.Entries {
		c.index(idx, e)
	}
}

// MarkDirty invalidates the cached fitness/violation result, used
// after any direct entry-list mutation that bypassed Add/RemoveWhere.
func (c *Chromosome) MarkDirty() {
	c.scored = false
}

// Scored reports whether Fitness/Violations reflect the current
// entry list.
func (c *Chromosome) Scored() bool {
	return c.scored
}

// SetScore records a freshly computed fitness/violation result and
// marks the chromosome as scored.
func (c *Chromosome) SetScore(fitness float64, violations map[string]int) {
	c.Fitness = fitness
	c.Violations = violations
	c.scored = true
}

// FromEntries rebinds a prior schedule onto cat, replaying each entry
// through Add so occupancy/assignment/workload stay consistent. The
// repair pipeline uses this to carry a stored schedule onto a freshly
// event-mutated catalog.
func FromEntries(cat *model.Catalog, entries []model.Entry) *Chromosome {
	ch := New(cat)
	for _, e := range entries {
		ch.Add(e)
	}
	return ch
}

// Clone returns a deep, independent copy sharing the same *Catalog.
func (c *Chromosome) Clone() *Chromosome {
	clone := New(c.Cat)
	clone.Entries = append([]model.Entry(nil), c.Entries...)
	clone.rebuildOccupancy()
	for k, v := range c.assignment {
		clone.assignment[k] = v
	}
	for k, v := range c.workload {
		clone.workload[k] = v
	}
	clone.Fitness = c.Fitness
	clone.Violations = cloneViolations(c.Violations)
	clone.scored = c.scored
	return clone
}

func cloneViolations(v map[string]int) map[string]int {
	out := make(map[string]int, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// SortedEntries returns Entries ordered by (section, day, period),
// the order the exporter's detailed view requires.
func (c *Chromosome) SortedEntries() []model.Entry {
	out := append([]model.Entry(nil), c.Entries...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].SectionID != out[j].SectionID {
			return out[i].SectionID < out[j].SectionID
		}
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Period < out[j].Period
	})
	return out
}

// LabSessionEntries groups every entry by LabSessionID, used by the
// constraint evaluator's lab-continuity check and by the repair
// pipeline's affected-entry scan.
func (c *Chromosome) LabSessionEntries() map[string][]model.Entry {
	groups := make(map[string][]model.Entry)
	for _, e := range c.Entries {
		if e.LabSessionID == "" {
			continue
		}
		groups[e.LabSessionID] = append(groups[e.LabSessionID], e)
	}
	return groups
}
