package variation

import (
	"math/rand"

	"github.com/campusforge/timetable-engine/internal/chromosome"
	"github.com/campusforge/timetable-engine/internal/model"
)

// Recombine yields a child by unioning both parents' entries,
// shuffling, and attempting to add each to the child in turn under
// the occupancy discipline: elective/slot exclusivity, faculty
// assignment reuse, and the per-subject-per-day cap all still apply.
func (e *Engine) Recombine(a, b *chromosome.Chromosome, rng *rand.Rand) *chromosome.Chromosome {
	child := chromosome.New(e.Cat)

	pool := make([]model.Entry, 0, len(a.Entries)+len(b.Entries))
	pool = append(pool, a.Entries...)
	pool = append(pool, b.Entries...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	placedLabSessions := make(map[string]bool)

	for _, entry := range pool {
		if entry.Kind == model.EntryLab {
			// Lab sessions are placed as a unit so a shuffled pool never
			// splits one session's continuations from its lead.
			if placedLabSessions[entry.LabSessionID] {
				continue
			}
			placedLabSessions[entry.LabSessionID] = true
			e.recombineLabSession(child, a, b, entry.LabSessionID)
			continue
		}

		inElectiveSlot := e.Cat.ElectiveSlotSet.Has(entry.Slot())
		isElective := entry.Kind == model.EntryElective
		if isElective && !inElectiveSlot {
			continue // rule (a)
		}
		if !isElective && inElectiveSlot {
			continue // rule (b)
		}

		candidate := entry
		if pinned, ok := child.AssignedFaculty(entry.SectionID, entry.SubjectID); ok && pinned != entry.FacultyID {
			candidate.FacultyID = pinned // rule (c): reuse the child's existing assignment
		}
		if countSubjectOnDay(child, candidate.SectionID, candidate.SubjectID, candidate.Day) >= e.subjectDayCap(candidate.SubjectID) {
			continue // rule (d)
		}
		ok := child.CanPlace(candidate)
		if isElective {
			ok = child.CanPlaceGroupMember(candidate)
		}
		if ok {
			child.Add(candidate)
		}
		// else: remap would clash or slot already taken; skip the entry (rule (c) tail)
	}

	return child
}

// recombineLabSession places one parent's copy of a lab session into
// the child atomically (all N periods or none), preferring the copy
// that appears first among the two parents for determinism.
func (e *Engine) recombineLabSession(child, a, b *chromosome.Chromosome, sessionID string) {
	group := labGroupByID(a, sessionID)
	if group == nil {
		group = labGroupByID(b, sessionID)
	}
	if group == nil {
		return
	}
	for _, entry := range group {
		if !child.CanPlace(entry) {
			return
		}
	}
	for _, entry := range group {
		child.Add(entry)
	}
}

func labGroupByID(ch *chromosome.Chromosome, sessionID string) []model.Entry {
	var out []model.Entry
	for _, e := range ch.Entries {
		if e.LabSessionID == sessionID {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
