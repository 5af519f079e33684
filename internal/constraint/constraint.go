// Package constraint counts hard-constraint violations and
// scalarises them together with the coverage rewards into the single
// fitness number the evolutionary driver optimises. The numeric
// weights are fixed: fitness comparisons must stay reproducible
// across runs and hosts.
package constraint

import (
	"github.com/campusforge/timetable-engine/internal/chromosome"
	"github.com/campusforge/timetable-engine/internal/model"
	"github.com/campusforge/timetable-engine/internal/requirement"
)

const (
	CoverageWeight              = 1000.0
	ElectiveWeight              = 600.0
	ClashWeight                 = 1000.0
	ElectiveSlotViolationWeight = 2000.0
	LabContinuityWeight         = 1500.0
	FitnessFloor                = 1.0
)

// Violation dictionary keys.
const (
	FacultyClash          = "faculty_clash"
	RoomClash             = "room_clash"
	SectionClash          = "section_clash"
	LabContinuity         = "lab_continuity"
	ElectiveSlotViolation = "elective_slot_violation"
)

// Evaluator scores chromosomes against a fixed catalog and required
// class bag.
type Evaluator struct {
	Cat *model.Catalog
	Bag *requirement.Bag
}

// New builds an Evaluator.
func New(cat *model.Catalog, bag *requirement.Bag) *Evaluator {
	return &Evaluator{Cat: cat, Bag: bag}
}

// Evaluate computes and caches the fitness and violation dictionary
// for ch, returning both. Re-evaluation is skipped if ch is already
// marked scored; callers that mutate entries directly must call
// ch.MarkDirty() first.
func (ev *Evaluator) Evaluate(ch *chromosome.Chromosome) (float64, map[string]int) {
	if ch.Scored() {
		return ch.Fitness, ch.Violations
	}

	violations := map[string]int{
		FacultyClash:          0,
		RoomClash:             0,
		SectionClash:          0,
		LabContinuity:         0,
		ElectiveSlotViolation: 0,
	}

	countClashes(ch.Entries, violations)
	countElectiveSlotViolations(ev.Cat, ch.Entries, violations)
	ev.countLabContinuity(ch, violations)

	coverageRatio := ratio(countCoverage(ch.Entries), ev.Bag.NonElectiveTotal())
	electiveRatio := ratio(countElectiveCoverage(ch.Entries), ev.Bag.ElectiveTotal())

	raw := CoverageWeight*coverageRatio + ElectiveWeight*electiveRatio -
		ClashWeight*float64(violations[FacultyClash]+violations[RoomClash]+violations[SectionClash]) -
		ElectiveSlotViolationWeight*float64(violations[ElectiveSlotViolation]) -
		LabContinuityWeight*float64(violations[LabContinuity])

	fitness := raw
	if fitness < FitnessFloor {
		fitness = FitnessFloor
	}

	ch.SetScore(fitness, violations)
	return fitness, violations
}

// ratio returns numerator/denominator clamped at full satisfaction.
// A zero denominator counts as satisfied, so a schedule with no
// electives required earns the whole elective reward, and duplicate
// placements beyond the requirement earn nothing extra.
func ratio(numerator, denominator int) float64 {
	if denominator <= 0 || numerator >= denominator {
		return 1.0
	}
	return float64(numerator) / float64(denominator)
}

func countCoverage(entries []model.Entry) int {
	count := 0
	for _, e := range entries {
		if e.Kind != model.EntryElective && e.CountsTowardCoverage() {
			count++
		}
	}
	return count
}

func countElectiveCoverage(entries []model.Entry) int {
	count := 0
	for _, e := range entries {
		if e.Kind == model.EntryElective && e.CountsTowardCoverage() {
			count++
		}
	}
	return count
}

type occKey struct {
	kind   string
	id     string
	day    int
	period int
}

// countClashes counts duplicate occupancy keys: every entry beyond
// the first sharing a (kind, id, day, period) key adds one to the
// corresponding violation count. Elective entries of one group share
// their section's slot and count as a single occupant.
func countClashes(entries []model.Entry, violations map[string]int) {
	seen := make(map[occKey]int)
	sections := make(map[occKey][]model.Entry)
	for _, e := range entries {
		if e.FacultyID != "" && e.FacultyID != model.NoFacultyID {
			k := occKey{"faculty", e.FacultyID, e.Day, e.Period}
			seen[k]++
			if seen[k] > 1 {
				violations[FacultyClash]++
			}
		}
		if e.RoomID != "" {
			k := occKey{"room", e.RoomID, e.Day, e.Period}
			seen[k]++
			if seen[k] > 1 {
				violations[RoomClash]++
			}
		}
		if e.SectionID != "" {
			k := occKey{"section", e.SectionID, e.Day, e.Period}
			sections[k] = append(sections[k], e)
		}
	}
	for _, group := range sections {
		if n := sectionOccupants(group); n > 1 {
			violations[SectionClash] += n - 1
		}
	}
}

// sectionOccupants counts distinct occupants of one section slot,
// merging every elective entry sharing a group id into one.
func sectionOccupants(entries []model.Entry) int {
	count := 0
	groups := make(map[string]bool)
	for _, e := range entries {
		if e.Kind == model.EntryElective && e.ElectiveGroupID != "" {
			if !groups[e.ElectiveGroupID] {
				groups[e.ElectiveGroupID] = true
				count++
			}
			continue
		}
		count++
	}
	return count
}

// countElectiveSlotViolations: elective entries must land in the
// elective slot set, non-electives must not.
func countElectiveSlotViolations(cat *model.Catalog, entries []model.Entry, violations map[string]int) {
	for _, e := range entries {
		inElectiveSlot := cat.ElectiveSlotSet.Has(e.Slot())
		isElective := e.Kind == model.EntryElective
		if isElective != inElectiveSlot {
			violations[ElectiveSlotViolation]++
		}
	}
}

// countLabContinuity: every lab-session id's entries must number
// exactly N, share one (section, faculty, room), occupy one day on
// strictly consecutive periods, with exactly one lead. A required
// session that never made it into the schedule counts too.
func (ev *Evaluator) countLabContinuity(ch *chromosome.Chromosome, violations map[string]int) {
	groups := ch.LabSessionEntries()
	for _, group := range groups {
		if !validLabGroup(ev.Cat, group) {
			violations[LabContinuity]++
		}
	}

	expected := 0
	for _, u := range ev.Bag.Units {
		if u.Kind == model.EntryLab {
			expected += u.Count
		}
	}
	if missing := expected - len(groups); missing > 0 {
		violations[LabContinuity] += missing
	}
}

func validLabGroup(cat *model.Catalog, group []model.Entry) bool {
	if len(group) == 0 {
		return false
	}
	subj, ok := cat.Subjects[group[0].SubjectID]
	if !ok || subj.RequiresConsecutivePeriods < 2 {
		return false
	}
	n := subj.RequiresConsecutivePeriods
	if len(group) != n {
		return false
	}
	first := group[0]
	leadCount := 0
	periods := make(map[int]bool, n)
	for _, e := range group {
		if e.SectionID != first.SectionID || e.FacultyID != first.FacultyID || e.RoomID != first.RoomID || e.Day != first.Day {
			return false
		}
		periods[e.Period] = true
		if !e.Continuation {
			leadCount++
		}
	}
	if leadCount != 1 {
		return false
	}
	minPeriod := first.Period
	for p := range periods {
		if p < minPeriod {
			minPeriod = p
		}
	}
	for i := 0; i < n; i++ {
		if !periods[minPeriod+i] {
			return false
		}
	}
	return len(periods) == n
}
