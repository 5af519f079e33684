// Package variation implements the three operators the evolutionary
// driver composes each generation: random initialisation, mutation,
// and recombination, every one of them respecting the chromosome's
// occupancy discipline.
package variation

import (
	"math/rand"
	"sort"

	"github.com/campusforge/timetable-engine/internal/chromosome"
	"github.com/campusforge/timetable-engine/internal/model"
	"github.com/campusforge/timetable-engine/internal/requirement"
	"github.com/campusforge/timetable-engine/internal/resolver"
)

// Params are the operator-tuning knobs.
type Params struct {
	MutationRate            float64
	MaxSubjectPerDayDefault int
	MaxMutationTries        int // random target slots tried per mutation
	MaxTheoryPlacementTries int
	ForceCoordinatorAssign  bool
}

// DefaultParams returns the stock operator tuning.
func DefaultParams() Params {
	return Params{
		MutationRate:            0.2,
		MaxSubjectPerDayDefault: 2,
		MaxMutationTries:        5,
		MaxTheoryPlacementTries: 200,
	}
}

// Engine binds the operators to a fixed catalog, requirement bag,
// and resolver, applying them with a supplied random source so
// callers control determinism.
type Engine struct {
	Cat      *model.Catalog
	Bag      *requirement.Bag
	Resolver *resolver.Resolver
	Params   Params
}

// New builds an Engine.
func New(cat *model.Catalog, bag *requirement.Bag, res *resolver.Resolver, params Params) *Engine {
	return &Engine{Cat: cat, Bag: bag, Resolver: res, Params: params}
}

// periodRun is a maximal span of consecutive, non-break period ids
// within one day.
type periodRun []int

// periodRuns returns every maximal run of consecutive non-break
// periods, sorted ascending.
func (e *Engine) periodRuns() []periodRun {
	ids := make([]int, 0, len(e.Cat.Periods))
	for _, p := range e.Cat.Periods {
		if !e.Cat.IsBreakPeriod(p.ID) {
			ids = append(ids, p.ID)
		}
	}
	sort.Ints(ids)

	var runs []periodRun
	var current periodRun
	for i, id := range ids {
		if i == 0 || id != ids[i-1]+1 {
			if len(current) > 0 {
				runs = append(runs, current)
			}
			current = periodRun{id}
		} else {
			current = append(current, id)
		}
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

// windows returns every contiguous window of length n within run.
func (r periodRun) windows(n int) [][]int {
	if len(r) < n {
		return nil
	}
	var out [][]int
	for start := 0; start+n <= len(r); start++ {
		out = append(out, append([]int(nil), r[start:start+n]...))
	}
	return out
}

func shuffleInts(rng *rand.Rand, xs []int) {
	rng.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
}

func shuffleIntSlices(rng *rand.Rand, xs [][]int) {
	rng.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
}

// subjectDayCap returns the per-subject-per-day cap applicable to
// subjectID: the subject's own override, else the engine default.
func (e *Engine) subjectDayCap(subjectID string) int {
	if subj, ok := e.Cat.Subjects[subjectID]; ok && subj.MaxPerDay > 0 {
		return subj.MaxPerDay
	}
	if e.Params.MaxSubjectPerDayDefault > 0 {
		return e.Params.MaxSubjectPerDayDefault
	}
	return 2
}

// countSubjectOnDay counts how many non-continuation entries of
// subjectID are already on sectionID at day.
func countSubjectOnDay(ch *chromosome.Chromosome, sectionID, subjectID string, day int) int {
	count := 0
	for _, e := range ch.Entries {
		if e.SectionID == sectionID && e.SubjectID == subjectID && e.Day == day && !e.Continuation {
			count++
		}
	}
	return count
}

// pickFaculty resolves a faculty id for (subjectID, sectionID),
// honouring the chromosome's stability pin.
func (e *Engine) pickFaculty(ch *chromosome.Chromosome, subjectID, sectionID string) string {
	pinned, _ := ch.AssignedFaculty(sectionID, subjectID)
	candidates := e.Resolver.CandidateFaculty(subjectID, sectionID, ch, resolver.Options{
		ForceCoordinatorAssignments: e.Params.ForceCoordinatorAssign,
		Pinned:                      pinned,
	})
	if len(candidates) == 0 {
		return model.NoFacultyID
	}
	return candidates[0]
}
