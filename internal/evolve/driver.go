package evolve

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/campusforge/timetable-engine/internal/chromosome"
	"github.com/campusforge/timetable-engine/internal/constraint"
	"github.com/campusforge/timetable-engine/internal/model"
	"github.com/campusforge/timetable-engine/internal/variation"
)

// SolutionCount is how many distinct top solutions a run returns.
const SolutionCount = 3

// yieldEvery is how often (in generations) the loop cooperatively
// yields so an observer can sample progress.
const yieldEvery = 5

// Params are the driver's tuning knobs.
type Params struct {
	PopulationSize  int
	Generations     int
	MutationRate    float64
	CrossoverRate   float64
	EliteSize       int
	StagnationLimit int
	TournamentSize  int
}

// DefaultParams returns the stock driver tuning.
func DefaultParams() Params {
	return Params{
		PopulationSize:  30,
		Generations:     200,
		MutationRate:    0.2,
		CrossoverRate:   0.8,
		EliteSize:       2,
		StagnationLimit: 5,
		TournamentSize:  3,
	}
}

func (p Params) normalized() Params {
	if p.PopulationSize <= 0 {
		p.PopulationSize = 30
	}
	if p.Generations <= 0 {
		p.Generations = 200
	}
	if p.StagnationLimit <= 0 {
		p.StagnationLimit = 5
	}
	if p.TournamentSize <= 0 {
		p.TournamentSize = 3
	}
	if p.EliteSize < 0 {
		p.EliteSize = 0
	}
	return p
}

// Solution is one of the top-K chromosomes returned by a run, with
// both its raw and displayed fitness.
type Solution struct {
	Rank           int
	Chromosome     *chromosome.Chromosome
	RawFitness     float64
	DisplayFitness float64
	Violations     map[string]int
}

// Result is the outcome of one evolutionary run.
type Result struct {
	Solutions []Solution
	Progress  Snapshot
}

// Driver runs the population loop over a fixed catalog, variation
// engine, and constraint evaluator.
type Driver struct {
	Cat       *model.Catalog
	Engine    *variation.Engine
	Evaluator *constraint.Evaluator
	Params    Params
}

// NewDriver builds a Driver.
func NewDriver(cat *model.Catalog, engine *variation.Engine, evaluator *constraint.Evaluator, params Params) *Driver {
	return &Driver{Cat: cat, Engine: engine, Evaluator: evaluator, Params: params.normalized()}
}

// Run builds a fresh random initial population and runs the
// evolutionary loop to completion or early stop.
func (d *Driver) Run(rng *rand.Rand, observer Observer) (*Result, error) {
	progress := NewProgress(uuid.NewString(), d.Params.Generations)
	oq := newObserverQueue(observer)
	defer oq.stop()

	oq.publish(progress.start())

	population := make([]*chromosome.Chromosome, d.Params.PopulationSize)
	for i := range population {
		ch := chromosome.New(d.Cat)
		d.Engine.Initialize(ch, rng)
		population[i] = ch
		oq.publish(progress.updateInitialization(i+1, d.Params.PopulationSize))
	}

	return d.runLoop(population, rng, progress, oq)
}

// RunSeeded runs the evolutionary loop starting from a caller-built
// population, the repair pipeline's reseeded re-search.
func (d *Driver) RunSeeded(population []*chromosome.Chromosome, rng *rand.Rand, observer Observer) (*Result, error) {
	progress := NewProgress(uuid.NewString(), d.Params.Generations)
	oq := newObserverQueue(observer)
	defer oq.stop()
	oq.publish(progress.start())
	oq.publish(progress.updateInitialization(len(population), len(population)))
	return d.runLoop(population, rng, progress, oq)
}

func (d *Driver) runLoop(population []*chromosome.Chromosome, rng *rand.Rand, progress *Progress, oq *observerQueue) (*Result, error) {
	bestFitness := math.Inf(-1)
	stagnation := 0
	status := StatusRunning

	for gen := 0; gen < d.Params.Generations; gen++ {
		for _, ch := range population {
			d.Evaluator.Evaluate(ch)
		}
		sort.SliceStable(population, func(i, j int) bool { return population[i].Fitness > population[j].Fitness })

		avg := averageFitness(population)
		if gen == 0 || population[0].Fitness > bestFitness {
			bestFitness = population[0].Fitness
			stagnation = 0
		} else {
			stagnation++
		}

		oq.publish(progress.update(gen, bestFitness, avg, population[0].Violations, StatusRunning))

		if stagnation >= d.Params.StagnationLimit {
			status = StatusEarlyStopped
			break
		}
		if gen == d.Params.Generations-1 {
			status = StatusCompleted
			break
		}

		population = d.nextGeneration(population, rng)

		if gen%yieldEvery == 0 {
			runtime.Gosched()
		}
	}

	for _, ch := range population {
		d.Evaluator.Evaluate(ch)
	}
	sort.SliceStable(population, func(i, j int) bool { return population[i].Fitness > population[j].Fitness })

	finalSnap := progress.finish(status)
	oq.publish(finalSnap)

	return &Result{
		Solutions: topKDistinct(population, SolutionCount),
		Progress:  finalSnap,
	}, nil
}

func (d *Driver) nextGeneration(population []*chromosome.Chromosome, rng *rand.Rand) []*chromosome.Chromosome {
	next := make([]*chromosome.Chromosome, 0, len(population))
	for i := 0; i < d.Params.EliteSize && i < len(population); i++ {
		next = append(next, population[i].Clone())
	}
	for len(next) < len(population) {
		p1 := d.tournamentSelect(population, rng)
		p2 := d.tournamentSelect(population, rng)

		var child *chromosome.Chromosome
		if rng.Float64() < d.Params.CrossoverRate {
			child = d.Engine.Recombine(p1, p2, rng)
		} else {
			child = p1.Clone()
		}
		d.Engine.Mutate(child, rng)
		next = append(next, child)
	}
	return next
}

func (d *Driver) tournamentSelect(population []*chromosome.Chromosome, rng *rand.Rand) *chromosome.Chromosome {
	size := d.Params.TournamentSize
	if size > len(population) {
		size = len(population)
	}
	best := population[rng.Intn(len(population))]
	for i := 1; i < size; i++ {
		cand := population[rng.Intn(len(population))]
		if cand.Fitness > best.Fitness {
			best = cand
		}
	}
	return best
}

func averageFitness(population []*chromosome.Chromosome) float64 {
	if len(population) == 0 {
		return 0
	}
	total := 0.0
	for _, ch := range population {
		total += ch.Fitness
	}
	return total / float64(len(population))
}

// topKDistinct returns the k best chromosomes by fitness, skipping
// duplicates (identical entry sets). When consecutive raw fitnesses
// tie, the displayed fitness of the later solution is decremented by
// one so the printed ranking stays visually monotone; internal
// comparisons always use RawFitness.
func topKDistinct(population []*chromosome.Chromosome, k int) []Solution {
	seen := make(map[string]bool, len(population))
	var out []Solution
	for _, ch := range population {
		key := fingerprint(ch)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Solution{
			Rank:           len(out) + 1,
			Chromosome:     ch,
			RawFitness:     ch.Fitness,
			DisplayFitness: ch.Fitness,
			Violations:     ch.Violations,
		})
		if len(out) == k {
			break
		}
	}
	for i := 1; i < len(out); i++ {
		if out[i].RawFitness == out[i-1].RawFitness {
			out[i].DisplayFitness = out[i-1].DisplayFitness - 1
		}
	}
	return out
}

func fingerprint(ch *chromosome.Chromosome) string {
	var b strings.Builder
	for _, e := range ch.SortedEntries() {
		fmt.Fprintf(&b, "%s|%s|%s|%s|%d|%d|%s|%t;", e.SectionID, e.SubjectID, e.FacultyID, e.RoomID, e.Day, e.Period, e.Kind, e.Continuation)
	}
	return b.String()
}
