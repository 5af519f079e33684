package model

import (
	"strings"

	appErrors "github.com/campusforge/timetable-engine/pkg/errors"
)

// Catalog is the normalised, constructed-once domain snapshot:
// entities plus the derived indices the rest of the engine reads. It
// is treated as immutable for the duration of a solve; only
// unavailability masks and FixedAssignments may be appended to by
// the event applier before a solve/repair.
type Catalog struct {
	Periods     []Period
	PeriodByID  map[int]Period
	WorkingDays []string

	BreakPeriods      map[int]bool // union of all break/lunch/mentorship periods
	LunchPeriods      map[int]bool
	MentorshipPeriods map[int]bool

	ElectiveSlots   []Slot
	ElectiveSlotSet SlotSet

	Rooms    map[string]*Room
	Faculty  map[string]*Faculty
	Subjects map[string]*Subject
	Sections map[string]*Section

	// Derived relations, rebuilt on construction.
	FacultySubjects    map[string]map[string]bool
	SectionDepartment  map[string]string
	SectionCoordinator map[string]string
	NameToID           map[string]string // lower-cased name/synonym -> canonical id

	FixedAssignments []FixedAssignment

	MaxClassesPerDayPerSection int
	MaxClassesPerSubjectPerDay int // default per-subject-per-day cap
}

// NewCatalog normalises a RawConfig into a Catalog, building every
// derived index exactly once.
func NewCatalog(raw *RawConfig) (*Catalog, error) {
	if raw == nil {
		return nil, appErrors.Clone(appErrors.ErrConfigurationInvalid, "configuration object is nil")
	}
	if len(raw.TimeSlots.Periods) == 0 || len(raw.TimeSlots.WorkingDays) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConfigurationInvalid, "time_slots must declare periods and working_days")
	}

	c := &Catalog{
		PeriodByID:         make(map[int]Period),
		WorkingDays:        append([]string(nil), raw.TimeSlots.WorkingDays...),
		BreakPeriods:       make(map[int]bool),
		LunchPeriods:       make(map[int]bool),
		MentorshipPeriods:  make(map[int]bool),
		ElectiveSlotSet:    make(SlotSet),
		Rooms:              make(map[string]*Room),
		Faculty:            make(map[string]*Faculty),
		Subjects:           make(map[string]*Subject),
		Sections:           make(map[string]*Section),
		FacultySubjects:    make(map[string]map[string]bool),
		SectionDepartment:  make(map[string]string),
		SectionCoordinator: make(map[string]string),
		NameToID:           make(map[string]string),
	}

	for _, p := range raw.TimeSlots.Periods {
		period := Period{ID: p.ID, Start: p.StartTime, End: p.EndTime}
		c.Periods = append(c.Periods, period)
		c.PeriodByID[p.ID] = period
	}

	addBreak := func(id int) { c.BreakPeriods[id] = true }
	for _, id := range raw.TimeSlots.BreakPeriods {
		addBreak(id)
	}
	if raw.TimeSlots.LunchPeriod != nil {
		c.LunchPeriods[*raw.TimeSlots.LunchPeriod] = true
		addBreak(*raw.TimeSlots.LunchPeriod)
	}
	for _, id := range raw.TimeSlots.LunchBreakPeriods {
		c.LunchPeriods[id] = true
		addBreak(id)
	}
	if raw.TimeSlots.MentorshipPeriod != nil {
		c.MentorshipPeriods[*raw.TimeSlots.MentorshipPeriod] = true
		addBreak(*raw.TimeSlots.MentorshipPeriod)
	}
	for _, id := range raw.TimeSlots.MentorshipPeriods {
		c.MentorshipPeriods[id] = true
		addBreak(id)
	}

	for _, es := range raw.ElectiveSlots {
		day, ok := ResolveDayIndex(c.WorkingDays, es.DayName)
		if !ok {
			continue
		}
		slot := Slot{Day: day, Period: es.Period}
		c.ElectiveSlots = append(c.ElectiveSlots, slot)
		c.ElectiveSlotSet.Add(slot)
	}

	for _, r := range raw.Rooms {
		kind := RoomClassroom
		if strings.EqualFold(r.Type, "laboratory") || strings.EqualFold(r.Type, "lab") {
			kind = RoomLaboratory
		}
		c.Rooms[r.RoomID] = &Room{
			ID:          r.RoomID,
			Name:        r.Name,
			Capacity:    r.Capacity,
			Kind:        kind,
			Department:  r.Department,
			Unavailable: make(SlotSet),
		}
	}

	registerSubject := func(raw RawSubject) {
		kind := SubjectTheory
		if strings.EqualFold(raw.Type, "lab") {
			kind = SubjectLab
		}
		id := raw.ID()
		if id == "" {
			return
		}
		subj := &Subject{
			ID:                         id,
			Name:                       raw.Name,
			Kind:                       kind,
			Credits:                    raw.Credits,
			Semester:                   raw.Semester,
			WeeklyCount:                raw.WeeklyCount(),
			MaxPerDay:                  raw.MaxClassesPerDay,
			Departments:                append([]string(nil), raw.Departments...),
			IsElective:                 raw.IsElective,
			RequiresConsecutivePeriods: raw.RequiresConsecutivePeriods,
			LabRooms:                   append([]string(nil), raw.LabRooms...),
		}
		c.Subjects[id] = subj
		if subj.Name != "" {
			c.NameToID[strings.ToLower(subj.Name)] = id
		}
		c.NameToID[strings.ToLower(id)] = id
	}
	for _, s := range raw.Subjects {
		registerSubject(s)
	}
	for _, l := range raw.Labs {
		registerSubject(l)
	}
	for name, id := range raw.SubjectNameMapping {
		if _, ok := c.Subjects[id]; ok {
			c.NameToID[strings.ToLower(name)] = id
		}
	}

	// Sections: flatten department nesting first so SectionDepartment
	// is set before falling back to top-level entries.
	for _, dept := range raw.Departments {
		for _, rs := range dept.Sections {
			if _, exists := c.Sections[rs.SectionID]; exists {
				continue
			}
			c.Sections[rs.SectionID] = newSection(rs)
			c.SectionDepartment[rs.SectionID] = dept.DeptID
		}
	}
	for _, rs := range raw.Sections {
		if _, exists := c.Sections[rs.SectionID]; exists {
			continue
		}
		c.Sections[rs.SectionID] = newSection(rs)
	}
	for id, sec := range c.Sections {
		sec.Department = c.SectionDepartment[id]
	}

	for _, rf := range raw.Faculty {
		f := &Faculty{
			ID:              rf.FacultyID,
			Name:            rf.Name,
			Department:      rf.Department,
			Designation:     rf.Designation,
			MaxHoursPerWeek: rf.MaxHoursPerWeek,
			Experience:      rf.Experience,
			Subjects:        make(map[string]bool),
			Unavailable:     make(SlotSet),
		}
		for _, ref := range rf.Subjects {
			if id, ok := c.resolveSubjectRef(ref); ok {
				f.Subjects[id] = true
			}
		}
		c.Faculty[f.ID] = f
		c.FacultySubjects[f.ID] = f.Subjects
	}

	for sectionID, sec := range c.Sections {
		if sec.Coordinator == "" {
			continue
		}
		if _, ok := c.Faculty[sec.Coordinator]; ok {
			c.SectionCoordinator[sectionID] = sec.Coordinator
			continue
		}
		lowered := strings.ToLower(sec.Coordinator)
		for fid, f := range c.Faculty {
			if strings.ToLower(f.Name) == lowered {
				c.SectionCoordinator[sectionID] = fid
				sec.Coordinator = fid
				break
			}
		}
	}

	for _, fa := range raw.SpecialRequirements.FixedAssignments {
		c.FixedAssignments = append(c.FixedAssignments, FixedAssignment{
			FacultyID: fa.FacultyID,
			SubjectID: fa.SubjectID,
			SectionID: fa.SectionID,
			Day:       fa.Day,
			Period:    fa.Period,
			RoomID:    fa.RoomID,
		})
	}

	c.MaxClassesPerDayPerSection = raw.Constraints.HardConstraints.MaxClassesPerDayPerSection
	c.MaxClassesPerSubjectPerDay = raw.Constraints.HardConstraints.MaxClassesPerSubjectPerDay
	if c.MaxClassesPerSubjectPerDay <= 0 {
		c.MaxClassesPerSubjectPerDay = 2
	}
	for _, id := range raw.Constraints.HardConstraints.BreakPeriodsFixed {
		addBreak(id)
	}

	if len(c.Rooms) == 0 || len(c.Faculty) == 0 || len(c.Sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConfigurationInvalid, "configuration must declare at least one room, faculty member, and section")
	}

	return c, nil
}

func newSection(rs RawSection) *Section {
	return &Section{
		ID:           rs.SectionID,
		Name:         rs.Name,
		Semester:     rs.Semester,
		HomeRoomID:   rs.Room,
		StudentCount: rs.StudentCount,
		Coordinator:  rs.Coordinator,
		Electives:    append([]string(nil), rs.Electives...),
		Unavailable:  make(SlotSet),
	}
}

// resolveSubjectRef resolves a faculty subject reference through the
// name table, falling back to treating it as an exact (already
// canonical) subject id. Anything else is dropped.
func (c *Catalog) resolveSubjectRef(ref string) (string, bool) {
	if id, ok := c.NameToID[strings.ToLower(ref)]; ok {
		return id, true
	}
	if _, ok := c.Subjects[ref]; ok {
		return ref, true
	}
	return "", false
}

// IsFacultyAvailable reports whether faculty facultyID may be used at
// slot sl. The sentinel NoFacultyID is always unavailable.
func (c *Catalog) IsFacultyAvailable(facultyID string, sl Slot) bool {
	if facultyID == NoFacultyID {
		return false
	}
	f, ok := c.Faculty[facultyID]
	if !ok {
		return false
	}
	return !f.Unavailable.Has(sl)
}

// IsRoomAvailable reports whether room roomID may be used at slot sl.
func (c *Catalog) IsRoomAvailable(roomID string, sl Slot) bool {
	r, ok := c.Rooms[roomID]
	if !ok {
		return false
	}
	return !r.Unavailable.Has(sl)
}

// IsSectionAvailable reports whether section sectionID may be used
// at slot sl.
func (c *Catalog) IsSectionAvailable(sectionID string, sl Slot) bool {
	s, ok := c.Sections[sectionID]
	if !ok {
		return false
	}
	return !s.Unavailable.Has(sl)
}

// IsBreakPeriod reports whether period p is a break period.
func (c *Catalog) IsBreakPeriod(p int) bool {
	return c.BreakPeriods[p]
}

// ElectivesForSemester returns every elective subject id offered in
// the given semester, used when a section's electives list is empty.
func (c *Catalog) ElectivesForSemester(semester string) []string {
	var ids []string
	for id, subj := range c.Subjects {
		if subj.IsElective && (semester == "" || subj.Semester == "" || subj.Semester == semester) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Clone returns a deep copy suitable for mutation by the event
// applier ahead of a repair run.
func (c *Catalog) Clone() *Catalog {
	clone := *c
	clone.Rooms = make(map[string]*Room, len(c.Rooms))
	for id, r := range c.Rooms {
		cr := *r
		cr.Unavailable = r.Unavailable.Clone()
		clone.Rooms[id] = &cr
	}
	clone.Faculty = make(map[string]*Faculty, len(c.Faculty))
	for id, f := range c.Faculty {
		cf := *f
		cf.Unavailable = f.Unavailable.Clone()
		cf.Subjects = make(map[string]bool, len(f.Subjects))
		for s := range f.Subjects {
			cf.Subjects[s] = true
		}
		clone.Faculty[id] = &cf
	}
	clone.FacultySubjects = make(map[string]map[string]bool, len(clone.Faculty))
	for id, f := range clone.Faculty {
		clone.FacultySubjects[id] = f.Subjects
	}
	clone.Sections = make(map[string]*Section, len(c.Sections))
	for id, s := range c.Sections {
		cs := *s
		cs.Unavailable = s.Unavailable.Clone()
		cs.Electives = append([]string(nil), s.Electives...)
		clone.Sections[id] = &cs
	}
	clone.FixedAssignments = append([]FixedAssignment(nil), c.FixedAssignments...)
	return &clone
}
