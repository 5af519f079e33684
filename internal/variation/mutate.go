package variation

import (
	"math/rand"
	"sort"

	"github.com/campusforge/timetable-engine/internal/chromosome"
	"github.com/campusforge/timetable-engine/internal/model"
	"github.com/campusforge/timetable-engine/internal/requirement"
)

// Mutate applies the mandatory lab-repair prelude, then with
// probability MutationRate picks one non-elective, non-continuation,
// unlocked entry at random and relocates it: a theory entry moves to
// a random conflict-free slot, a lab lead drags its whole session to
// a fresh consecutive window. Electives stay pinned to their slot
// set.
func (e *Engine) Mutate(ch *chromosome.Chromosome, rng *rand.Rand) {
	e.repairLabSessions(ch, rng)

	if rng.Float64() >= e.Params.MutationRate {
		return
	}

	var candidates []int
	for i, entry := range ch.Entries {
		if entry.Kind != model.EntryElective && !entry.Continuation && !entry.Locked {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return
	}
	entry := ch.Entries[candidates[rng.Intn(len(candidates))]]

	if entry.Kind == model.EntryLab {
		e.relocateLabSession(ch, entry, rng)
		return
	}

	tries := e.Params.MaxMutationTries
	if tries <= 0 {
		tries = 5
	}
	days := len(e.Cat.WorkingDays)
	for attempt := 0; attempt < tries; attempt++ {
		day := rng.Intn(days)
		period := e.Cat.Periods[rng.Intn(len(e.Cat.Periods))].ID
		if countSubjectOnDay(ch, entry.SectionID, entry.SubjectID, day) >= e.subjectDayCap(entry.SubjectID) {
			continue
		}
		candidate := entry
		candidate.Day = day
		candidate.Period = period

		removed := ch.RemoveWhere(func(x model.Entry) bool { return sameEntryIdentity(x, entry) })
		if len(removed) == 0 {
			continue
		}
		if ch.CanPlace(candidate) {
			ch.Add(candidate)
			return
		}
		ch.Add(removed[0]) // revert: candidate slot was unusable
	}
}

func sameEntryIdentity(a, b model.Entry) bool {
	return a.SectionID == b.SectionID && a.SubjectID == b.SubjectID && a.Day == b.Day &&
		a.Period == b.Period && a.FacultyID == b.FacultyID && a.RoomID == b.RoomID && a.Kind == b.Kind
}

// relocateLabSession moves a lab session as a unit: remove all N
// entries, then re-place through the same day/window search the
// initialiser uses, keeping the session id. If no window takes it,
// the original placement is restored.
func (e *Engine) relocateLabSession(ch *chromosome.Chromosome, lead model.Entry, rng *rand.Rand) {
	sessionID := lead.LabSessionID
	if sessionID == "" {
		return
	}
	removed := ch.RemoveWhere(func(x model.Entry) bool { return x.LabSessionID == sessionID })
	e.placeLabSession(ch, requirement.Unit{
		SectionID: lead.SectionID,
		SubjectID: lead.SubjectID,
		Kind:      model.EntryLab,
		Count:     1,
	}, sessionID, rng)
	if len(labGroupByID(ch, sessionID)) == 0 {
		for _, old := range removed {
			ch.Add(old)
		}
	}
}

// repairLabSessions removes and re-places any lab session whose
// current entries do not form a valid consecutive N-tuple. Sessions
// are visited in id order so a fixed seed replays identically.
func (e *Engine) repairLabSessions(ch *chromosome.Chromosome, rng *rand.Rand) {
	groups := ch.LabSessionEntries()
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, sessionID := range ids {
		group := groups[sessionID]
		subj := e.Cat.Subjects[group[0].SubjectID]
		if subj == nil {
			continue
		}
		if validLabGroup(subj, group) {
			continue
		}
		first := group[0]
		ch.RemoveWhere(func(x model.Entry) bool { return x.LabSessionID == sessionID })
		e.placeLabSession(ch, requirement.Unit{
			SectionID: first.SectionID,
			SubjectID: first.SubjectID,
			Kind:      model.EntryLab,
			Count:     1,
		}, sessionID, rng)
	}
}

func validLabGroup(subj *model.Subject, group []model.Entry) bool {
	n := subj.RequiresConsecutivePeriods
	if n < 2 || len(group) != n {
		return false
	}
	first := group[0]
	periods := make(map[int]bool, n)
	leads := 0
	for _, e := range group {
		if e.SectionID != first.SectionID || e.FacultyID != first.FacultyID || e.RoomID != first.RoomID || e.Day != first.Day {
			return false
		}
		periods[e.Period] = true
		if !e.Continuation {
			leads++
		}
	}
	if leads != 1 || len(periods) != n {
		return false
	}
	min := first.Period
	for p := range periods {
		if p < min {
			min = p
		}
	}
	for i := 0; i < n; i++ {
		if !periods[min+i] {
			return false
		}
	}
	return true
}
