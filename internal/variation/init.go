package variation

import (
	"fmt"
	"math/rand"

	"github.com/campusforge/timetable-engine/internal/chromosome"
	"github.com/campusforge/timetable-engine/internal/model"
	"github.com/campusforge/timetable-engine/internal/requirement"
)

// Initialize populates an empty chromosome: fixed assignments first,
// then elective groups, labs, and finally theory. Entries that
// cannot be placed are simply omitted; the constraint evaluator's
// coverage ratio reflects the shortfall rather than the operator
// raising an error.
func (e *Engine) Initialize(ch *chromosome.Chromosome, rng *rand.Rand) {
	e.placeFixedAssignments(ch)
	var groupOrder []string
	groups := make(map[string][]requirement.Unit)
	for _, u := range e.Bag.Units {
		if u.Kind != model.EntryElective {
			continue
		}
		if _, ok := groups[u.GroupID]; !ok {
			groupOrder = append(groupOrder, u.GroupID)
		}
		groups[u.GroupID] = append(groups[u.GroupID], u)
	}
	for _, gid := range groupOrder {
		e.placeElectiveGroup(ch, groups[gid])
	}
	for _, u := range e.Bag.Units {
		if u.Kind == model.EntryLab {
			for i := 0; i < u.Count; i++ {
				sessionID := fmt.Sprintf("%s::%s::lab%d", u.SectionID, u.SubjectID, i)
				e.placeLabSession(ch, u, sessionID, rng)
			}
		}
	}
	for _, u := range e.Bag.Units {
		if u.Kind == model.EntryTheory {
			for i := 0; i < u.Count; i++ {
				e.placeTheoryEntry(ch, u, rng)
			}
		}
	}
}

// placeFixedAssignments places every locked assignment from the
// catalog before anything else claims its slot. A missing room id is
// resolved through the normal room chain; the first conflict-free
// room wins.
func (e *Engine) placeFixedAssignments(ch *chromosome.Chromosome) {
	for _, fa := range e.Cat.FixedAssignments {
		subj, ok := e.Cat.Subjects[fa.SubjectID]
		if !ok {
			continue
		}
		kind := model.EntryTheory
		if subj.Kind == model.SubjectLab {
			kind = model.EntryLab
		}
		if subj.IsElective {
			kind = model.EntryElective
		}
		rooms := []string{fa.RoomID}
		if fa.RoomID == "" {
			rooms = e.Resolver.CandidateRooms(fa.SubjectID, fa.SectionID, subj.Kind == model.SubjectLab)
		}
		for _, roomID := range rooms {
			entry := model.Entry{
				SectionID: fa.SectionID,
				SubjectID: fa.SubjectID,
				FacultyID: fa.FacultyID,
				RoomID:    roomID,
				Day:       fa.Day,
				Period:    fa.Period,
				Kind:      kind,
				Locked:    true,
			}
			if ch.CanPlace(entry) {
				ch.Add(entry)
				break
			}
		}
	}
}

// placeElectiveGroup walks the elective slot set in declared order
// and commits the whole group to the first slot where every member
// can be placed simultaneously. A group that fits nowhere is left
// unplaced and shows up as missing elective coverage.
func (e *Engine) placeElectiveGroup(ch *chromosome.Chromosome, units []requirement.Unit) {
	if len(units) == 0 {
		return
	}
	for _, sl := range e.Cat.ElectiveSlots {
		if e.tryPlaceGroupAt(ch, units, sl) {
			return
		}
	}
}

// tryPlaceGroupAt attempts an all-or-nothing placement of the group
// at sl. An auto-chosen unit cycles through its Members pool before
// the slot is declared unusable.
func (e *Engine) tryPlaceGroupAt(ch *chromosome.Chromosome, units []requirement.Unit, sl model.Slot) bool {
	groupID := units[0].GroupID
	placed := 0
	for _, u := range units {
		candidates := []string{u.SubjectID}
		for _, m := range u.Members {
			if m != u.SubjectID {
				candidates = append(candidates, m)
			}
		}
		ok := false
		for _, subjectID := range candidates {
			if _, known := e.Cat.Subjects[subjectID]; !known {
				continue
			}
			facultyID := e.pickFaculty(ch, subjectID, u.SectionID)
			for _, roomID := range e.Resolver.CandidateRooms(subjectID, u.SectionID, false) {
				entry := model.Entry{
					SectionID:       u.SectionID,
					SubjectID:       subjectID,
					FacultyID:       facultyID,
					RoomID:          roomID,
					Day:             sl.Day,
					Period:          sl.Period,
					Kind:            model.EntryElective,
					ElectiveGroupID: groupID,
				}
				if ch.CanPlaceGroupMember(entry) {
					ch.Add(entry)
					placed++
					ok = true
					break
				}
			}
			if ok {
				break
			}
		}
		if !ok {
			if placed > 0 {
				ch.RemoveWhere(func(x model.Entry) bool {
					return x.ElectiveGroupID == groupID && x.Day == sl.Day && x.Period == sl.Period
				})
			}
			return false
		}
	}
	return true
}

// placeLabSession walks days in random order, enumerates windows of
// length N inside each maximal non-break run, and commits the first
// window where every slot is conflict-free.
func (e *Engine) placeLabSession(ch *chromosome.Chromosome, u requirement.Unit, sessionID string, rng *rand.Rand) {
	subj := e.Cat.Subjects[u.SubjectID]
	if subj == nil || subj.RequiresConsecutivePeriods < 2 {
		return
	}
	n := subj.RequiresConsecutivePeriods

	days := make([]int, len(e.Cat.WorkingDays))
	for i := range days {
		days[i] = i
	}
	shuffleInts(rng, days)

	facultyID := e.pickFaculty(ch, u.SubjectID, u.SectionID)
	roomCandidates := e.Resolver.CandidateRooms(u.SubjectID, u.SectionID, true)

	runs := e.periodRuns()

	for _, day := range days {
		for _, run := range runs {
			windows := run.windows(n)
			shuffleIntSlices(rng, windows)
			for _, window := range windows {
				for _, roomID := range roomCandidates {
					if ch.CanPlaceLabPair(u.SectionID, u.SubjectID, facultyID, roomID, day, window[0], n) {
						for i, period := range window {
							ch.Add(model.Entry{
								SectionID:    u.SectionID,
								SubjectID:    u.SubjectID,
								FacultyID:    facultyID,
								RoomID:       roomID,
								Day:          day,
								Period:       period,
								Kind:         model.EntryLab,
								LabSessionID: sessionID,
								Continuation: i > 0,
							})
						}
						return
					}
				}
			}
		}
	}
}

// placeTheoryEntry draws a random (day, period) from the legal set
// up to a bounded attempt count; elective slots are excluded.
func (e *Engine) placeTheoryEntry(ch *chromosome.Chromosome, u requirement.Unit, rng *rand.Rand) {
	facultyID := e.pickFaculty(ch, u.SubjectID, u.SectionID)
	roomCandidates := e.Resolver.CandidateRooms(u.SubjectID, u.SectionID, false)
	if len(roomCandidates) == 0 {
		return
	}

	runs := e.periodRuns()
	var legal []model.Slot
	for day := range e.Cat.WorkingDays {
		for _, run := range runs {
			for _, p := range run {
				sl := model.Slot{Day: day, Period: p}
				if !e.Cat.ElectiveSlotSet.Has(sl) {
					legal = append(legal, sl)
				}
			}
		}
	}
	if len(legal) == 0 {
		return
	}

	attemptCap := e.Params.MaxTheoryPlacementTries
	if attemptCap <= 0 {
		attemptCap = 200
	}
	for attempt := 0; attempt < attemptCap; attempt++ {
		sl := legal[rng.Intn(len(legal))]
		if countSubjectOnDay(ch, u.SectionID, u.SubjectID, sl.Day) >= e.subjectDayCap(u.SubjectID) {
			continue
		}
		roomID := roomCandidates[rng.Intn(len(roomCandidates))]
		entry := model.Entry{
			SectionID: u.SectionID,
			SubjectID: u.SubjectID,
			FacultyID: facultyID,
			RoomID:    roomID,
			Day:       sl.Day,
			Period:    sl.Period,
			Kind:      model.EntryTheory,
		}
		if ch.CanPlace(entry) {
			ch.Add(entry)
			return
		}
	}
}
