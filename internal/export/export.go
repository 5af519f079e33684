// Package export renders a scored chromosome into the three views
// external callers consume: a per-section grid, a per-faculty grid
// with an occupancy bitmap, and a flat detailed list, plus summary
// statistics. Electives always display the faculty column as the
// literal string "OE"; the actual teacher stays masked.
package export

import (
	"fmt"
	"sort"

	"github.com/campusforge/timetable-engine/internal/chromosome"
	"github.com/campusforge/timetable-engine/internal/constraint"
	"github.com/campusforge/timetable-engine/internal/model"
)

const electiveFacultyLabel = "OE"

// Cell is one (day, period) grid entry.
type Cell struct {
	Label   string `json:"label"` // "LUNCH BREAK", "BREAK", "FREE", or the subject name
	Subject string `json:"subject,omitempty"`
	Faculty string `json:"faculty,omitempty"`
	Room    string `json:"room,omitempty"`
	Kind    string `json:"kind,omitempty"`
	IsBreak bool   `json:"is_break,omitempty"`
	IsLunch bool   `json:"is_lunch,omitempty"`
	IsFree  bool   `json:"is_free,omitempty"`
}

// Grid is a day-major, period-indexed-by-id matrix of cells.
type Grid map[int]map[int]Cell // day -> period id -> cell

// SectionView is one section's weekly grid.
type SectionView struct {
	SectionID string `json:"section_id"`
	Name      string `json:"name"`
	Grid      Grid   `json:"grid"`
}

// FacultyView is one faculty member's weekly grid plus a parallel
// 0/1 occupancy bitmap.
type FacultyView struct {
	FacultyID string              `json:"faculty_id"`
	Name      string              `json:"name"`
	Grid      Grid                `json:"grid"`
	Placed    map[int]map[int]int `json:"placed"`
}

// DetailedRecord is one exported entry, sorted by (section, day,
// period) within the detailed list.
type DetailedRecord struct {
	SectionID       string `json:"section_id"`
	SectionName     string `json:"section_name"`
	SubjectID       string `json:"subject_id"`
	SubjectName     string `json:"subject_name"`
	FacultyID       string `json:"faculty_id"`
	FacultyName     string `json:"faculty_name"`
	RoomID          string `json:"room_id"`
	RoomName        string `json:"room_name"`
	Day             int    `json:"day"`
	DayName         string `json:"day_name"`
	Period          int    `json:"period"`
	Time            string `json:"time"`
	Kind            string `json:"kind"`
	LabSessionID    string `json:"lab_session_id,omitempty"`
	Continuation    bool   `json:"continuation,omitempty"`
	ElectiveGroupID string `json:"elective_group_id,omitempty"`
	Locked          bool   `json:"locked,omitempty"`
}

// Statistics summarises one solution.
type Statistics struct {
	TotalClasses      int            `json:"total_classes"`
	LabSessions       int            `json:"lab_sessions"`
	CoverageScheduled int            `json:"coverage_scheduled"`
	CoverageRequired  int            `json:"coverage_required"`
	ElectiveScheduled int            `json:"elective_scheduled"`
	ElectiveRequired  int            `json:"elective_required"`
	Fitness           float64        `json:"fitness"`
	Violations        map[string]int `json:"violations"`
}

// Solution is the full per-rank export payload.
type Solution struct {
	Rank                 int              `json:"rank"`
	Fitness              float64          `json:"fitness"`
	ConstraintViolations map[string]int   `json:"constraint_violations"`
	Sections             []SectionView    `json:"sections"`
	Faculty              []FacultyView    `json:"faculty"`
	Detailed             []DetailedRecord `json:"detailed"`
	Statistics           Statistics       `json:"statistics"`
}

// Exporter renders chromosomes against a fixed catalog.
type Exporter struct {
	Cat *model.Catalog
}

// New builds an Exporter.
func New(cat *model.Catalog) *Exporter {
	return &Exporter{Cat: cat}
}

// Build renders rank/fitness/violations plus all three views and
// statistics for ch. nonElectiveRequired/electiveRequired come from
// the requirement bag's totals.
func (ex *Exporter) Build(ch *chromosome.Chromosome, rank int, displayFitness float64, nonElectiveRequired, electiveRequired int) Solution {
	return Solution{
		Rank:                 rank,
		Fitness:              displayFitness,
		ConstraintViolations: ch.Violations,
		Sections:             ex.sectionViews(ch),
		Faculty:              ex.facultyViews(ch),
		Detailed:             ex.detailedList(ch),
		Statistics:           ex.statistics(ch, nonElectiveRequired, electiveRequired),
	}
}

func (ex *Exporter) blankGrid() Grid {
	g := make(Grid)
	for day := range ex.Cat.WorkingDays {
		g[day] = make(map[int]Cell)
		for _, p := range ex.Cat.Periods {
			g[day][p.ID] = ex.emptyCell(p.ID)
		}
	}
	return g
}

func (ex *Exporter) emptyCell(periodID int) Cell {
	switch {
	case ex.Cat.LunchPeriods[periodID]:
		return Cell{Label: "LUNCH BREAK", IsBreak: true, IsLunch: true}
	case ex.Cat.IsBreakPeriod(periodID):
		return Cell{Label: "BREAK", IsBreak: true}
	default:
		return Cell{Label: "FREE", IsFree: true}
	}
}

func (ex *Exporter) sectionViews(ch *chromosome.Chromosome) []SectionView {
	grids := make(map[string]Grid)
	names := make(map[string]string)
	for id, s := range ex.Cat.Sections {
		names[id] = s.Name
	}

	for _, e := range ch.Entries {
		grid, ok := grids[e.SectionID]
		if !ok {
			grid = ex.blankGrid()
			grids[e.SectionID] = grid
		}
		grid[e.Day][e.Period] = ex.classCell(e)
	}

	ids := make([]string, 0, len(ex.Cat.Sections))
	for id := range ex.Cat.Sections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	views := make([]SectionView, 0, len(ids))
	for _, id := range ids {
		grid, ok := grids[id]
		if !ok {
			grid = ex.blankGrid()
		}
		views = append(views, SectionView{SectionID: id, Name: names[id], Grid: grid})
	}
	return views
}

func (ex *Exporter) facultyViews(ch *chromosome.Chromosome) []FacultyView {
	grids := make(map[string]Grid)
	placed := make(map[string]map[int]map[int]int)
	names := make(map[string]string)
	for id, f := range ex.Cat.Faculty {
		names[id] = f.Name
	}

	ensure := func(id string) (Grid, map[int]map[int]int) {
		grid, ok := grids[id]
		if !ok {
			grid = ex.blankGrid()
			grids[id] = grid
			bitmap := make(map[int]map[int]int)
			for day := range ex.Cat.WorkingDays {
				bitmap[day] = make(map[int]int)
				for _, p := range ex.Cat.Periods {
					bitmap[day][p.ID] = 0
				}
			}
			placed[id] = bitmap
		}
		return grid, placed[id]
	}

	for _, e := range ch.Entries {
		if e.FacultyID == "" || e.FacultyID == model.NoFacultyID {
			continue
		}
		grid, bitmap := ensure(e.FacultyID)
		grid[e.Day][e.Period] = ex.classCell(e)
		bitmap[e.Day][e.Period] = 1
	}

	ids := make([]string, 0, len(ex.Cat.Faculty))
	for id := range ex.Cat.Faculty {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	views := make([]FacultyView, 0, len(ids))
	for _, id := range ids {
		grid, bitmap := ensure(id)
		views = append(views, FacultyView{FacultyID: id, Name: names[id], Grid: grid, Placed: bitmap})
	}
	return views
}

func (ex *Exporter) classCell(e model.Entry) Cell {
	subjName := e.SubjectID
	if s, ok := ex.Cat.Subjects[e.SubjectID]; ok && s.Name != "" {
		subjName = s.Name
	}
	facultyLabel := ex.facultyDisplay(e)
	roomName := e.RoomID
	if r, ok := ex.Cat.Rooms[e.RoomID]; ok && r.Name != "" {
		roomName = r.Name
	}
	return Cell{
		Label:   subjName,
		Subject: subjName,
		Faculty: facultyLabel,
		Room:    roomName,
		Kind:    string(e.Kind),
	}
}

func (ex *Exporter) facultyDisplay(e model.Entry) string {
	if e.Kind == model.EntryElective {
		return electiveFacultyLabel
	}
	if f, ok := ex.Cat.Faculty[e.FacultyID]; ok && f.Name != "" {
		return f.Name
	}
	return e.FacultyID
}

func (ex *Exporter) detailedList(ch *chromosome.Chromosome) []DetailedRecord {
	out := make([]DetailedRecord, 0, len(ch.Entries))
	for _, e := range ch.SortedEntries() {
		period := ex.Cat.PeriodByID[e.Period]
		dayName := ""
		if e.Day >= 0 && e.Day < len(ex.Cat.WorkingDays) {
			dayName = ex.Cat.WorkingDays[e.Day]
		}
		sectionName := ""
		if s, ok := ex.Cat.Sections[e.SectionID]; ok {
			sectionName = s.Name
		}
		subjName := ""
		if s, ok := ex.Cat.Subjects[e.SubjectID]; ok {
			subjName = s.Name
		}
		roomName := ""
		if r, ok := ex.Cat.Rooms[e.RoomID]; ok {
			roomName = r.Name
		}
		out = append(out, DetailedRecord{
			SectionID:       e.SectionID,
			SectionName:     sectionName,
			SubjectID:       e.SubjectID,
			SubjectName:     subjName,
			FacultyID:       e.FacultyID,
			FacultyName:     ex.facultyDisplay(e),
			RoomID:          e.RoomID,
			RoomName:        roomName,
			Day:             e.Day,
			DayName:         dayName,
			Period:          e.Period,
			Time:            fmt.Sprintf("%s–%s", period.Start, period.End),
			Kind:            string(e.Kind),
			LabSessionID:    e.LabSessionID,
			Continuation:    e.Continuation,
			ElectiveGroupID: e.ElectiveGroupID,
			Locked:          e.Locked,
		})
	}
	return out
}

func (ex *Exporter) statistics(ch *chromosome.Chromosome, nonElectiveRequired, electiveRequired int) Statistics {
	totalClasses := 0
	labSessions := make(map[string]bool)
	coverageScheduled := 0
	electiveScheduled := 0

	for _, e := range ch.Entries {
		if !e.Continuation {
			totalClasses++
		}
		if e.Kind == model.EntryLab && e.LabSessionID != "" {
			labSessions[e.LabSessionID] = true
		}
		if e.CountsTowardCoverage() {
			if e.Kind == model.EntryElective {
				electiveScheduled++
			} else {
				coverageScheduled++
			}
		}
	}

	violations := ch.Violations
	if violations == nil {
		violations = map[string]int{
			constraint.FacultyClash: 0, constraint.RoomClash: 0, constraint.SectionClash: 0,
			constraint.LabContinuity: 0, constraint.ElectiveSlotViolation: 0,
		}
	}

	return Statistics{
		TotalClasses:      totalClasses,
		LabSessions:       len(labSessions),
		CoverageScheduled: coverageScheduled,
		CoverageRequired:  nonElectiveRequired,
		ElectiveScheduled: electiveScheduled,
		ElectiveRequired:  electiveRequired,
		Fitness:           ch.Fitness,
		Violations:        violations,
	}
}
