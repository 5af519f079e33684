// Package generator orchestrates a full solve: catalog construction,
// requirement derivation, the evolutionary search, and export of the
// ranked solutions. It is the programmatic entry point the CLI and
// any future transport layer call into.
package generator

import (
	"math/rand"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusforge/timetable-engine/internal/chromosome"
	"github.com/campusforge/timetable-engine/internal/constraint"
	"github.com/campusforge/timetable-engine/internal/evolve"
	"github.com/campusforge/timetable-engine/internal/events"
	"github.com/campusforge/timetable-engine/internal/export"
	"github.com/campusforge/timetable-engine/internal/ledger"
	"github.com/campusforge/timetable-engine/internal/model"
	"github.com/campusforge/timetable-engine/internal/repair"
	"github.com/campusforge/timetable-engine/internal/requirement"
	"github.com/campusforge/timetable-engine/internal/resolver"
	"github.com/campusforge/timetable-engine/internal/variation"
	"github.com/campusforge/timetable-engine/pkg/config"
	appErrors "github.com/campusforge/timetable-engine/pkg/errors"
)

// Service wires the solve and repair paths over shared defaults.
type Service struct {
	validate *validator.Validate
	logger   *zap.Logger
	defaults config.GAConfig
}

// NewService builds a Service. Nil collaborators get safe defaults.
func NewService(validate *validator.Validate, logger *zap.Logger, defaults config.GAConfig) *Service {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{validate: validate, logger: logger, defaults: defaults}
}

// Options tune one generation run.
type Options struct {
	Seed                        int64
	ForceCoordinatorAssignments bool
}

// Output is the result of one generation run: the ranked exported
// solutions plus the raw driver result for callers that need the
// chromosomes themselves.
type Output struct {
	RunID     string
	Solutions []export.Solution
	Progress  evolve.Snapshot
	Catalog   *model.Catalog
	Bag       *requirement.Bag
	Raw       *evolve.Result
}

// Generate runs the full generation path over raw. A best solution
// stuck at the fitness floor is still exported, alongside an
// ErrNoSolution so callers can inspect the violation dictionary.
func (s *Service) Generate(raw *model.RawConfig, opts Options, observer evolve.Observer) (*Output, error) {
	if err := s.validateConfig(raw); err != nil {
		return nil, err
	}
	cat, err := model.NewCatalog(raw)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	bag, err := requirement.Build(cat, func(_ string, pool []string) string {
		return pool[rng.Intn(len(pool))]
	})
	if err != nil {
		return nil, err
	}

	evolveParams := s.evolveParams(raw)
	variationParams := variation.DefaultParams()
	variationParams.MutationRate = evolveParams.MutationRate
	variationParams.ForceCoordinatorAssign = opts.ForceCoordinatorAssignments
	if s.defaults.MaxSubjectPerDayCap > 0 {
		variationParams.MaxSubjectPerDayDefault = s.defaults.MaxSubjectPerDayCap
	}
	// The configuration object's own hard-constraint cap wins.
	if cat.MaxClassesPerSubjectPerDay > 0 {
		variationParams.MaxSubjectPerDayDefault = cat.MaxClassesPerSubjectPerDay
	}

	res := resolver.New(cat)
	engine := variation.New(cat, bag, res, variationParams)
	evaluator := constraint.New(cat, bag)
	driver := evolve.NewDriver(cat, engine, evaluator, evolveParams)

	s.logger.Info("generation started",
		zap.Int("sections", len(cat.Sections)),
		zap.Int("required_units", len(bag.Units)),
		zap.Int("population", evolveParams.PopulationSize))

	result, err := driver.Run(rng, observer)
	if err != nil {
		return nil, err
	}

	out := &Output{
		RunID:     uuid.NewString(),
		Solutions: s.exportSolutions(cat, bag, result),
		Progress:  result.Progress,
		Catalog:   cat,
		Bag:       bag,
		Raw:       result,
	}

	if len(result.Solutions) == 0 || result.Solutions[0].RawFitness <= constraint.FitnessFloor {
		s.logger.Warn("search ended at the fitness floor", zap.Any("violations", out.Progress.Violations))
		return out, appErrors.Clone(appErrors.ErrNoSolution, "")
	}

	s.logger.Info("generation finished",
		zap.String("run_id", out.RunID),
		zap.Float64("best_fitness", result.Solutions[0].RawFitness),
		zap.String("status", string(result.Progress.Status)))
	return out, nil
}

// RepairInput carries everything one repair run needs.
type RepairInput struct {
	Prior    []model.Entry
	Payload  events.Payload
	Seed     int64
	Ledger   *ledger.Ledger
	Observer evolve.Observer
}

// RepairOutput pairs the repaired schedule's export with the repair
// report.
type RepairOutput struct {
	Solution export.Solution
	Report   repair.Report
	Result   *repair.Result
}

// Repair runs the incremental repair path over raw and a prior
// schedule.
func (s *Service) Repair(raw *model.RawConfig, in RepairInput) (*RepairOutput, error) {
	if err := s.validateConfig(raw); err != nil {
		return nil, err
	}
	cat, err := model.NewCatalog(raw)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(in.Seed))
	bag, err := requirement.Build(cat, func(_ string, pool []string) string {
		return pool[rng.Intn(len(pool))]
	})
	if err != nil {
		return nil, err
	}

	params := repair.DefaultParams()
	params.Evolve = s.evolveParams(raw)
	params.Variation.MutationRate = params.Evolve.MutationRate
	if cat.MaxClassesPerSubjectPerDay > 0 {
		params.Variation.MaxSubjectPerDayDefault = cat.MaxClassesPerSubjectPerDay
	}

	pipeline := repair.New(cat, bag, in.Ledger, params, s.logger)
	result, err := pipeline.Run(in.Prior, in.Payload, rng, in.Observer)
	if err != nil {
		return nil, err
	}

	evaluator := constraint.New(result.Chromosome.Cat, bag)
	evaluator.Evaluate(result.Chromosome)

	exporter := export.New(result.Chromosome.Cat)
	sol := exporter.Build(result.Chromosome, 1, result.Chromosome.Fitness, bag.NonElectiveTotal(), bag.ElectiveTotal())

	return &RepairOutput{Solution: sol, Report: result.Report, Result: result}, nil
}

// ExportPrior renders a prior schedule against a fresh catalog, used
// for before/after documents around a repair.
func (s *Service) ExportPrior(raw *model.RawConfig, prior []model.Entry) (export.Solution, error) {
	cat, err := model.NewCatalog(raw)
	if err != nil {
		return export.Solution{}, err
	}
	bag, err := requirement.Build(cat, nil)
	if err != nil {
		return export.Solution{}, err
	}
	ch := chromosome.FromEntries(cat, prior)
	constraint.New(cat, bag).Evaluate(ch)
	return export.New(cat).Build(ch, 1, ch.Fitness, bag.NonElectiveTotal(), bag.ElectiveTotal()), nil
}

// validateConfig runs struct-tag validation over a non-nil raw
// configuration; a nil one falls through to the catalog's own check.
func (s *Service) validateConfig(raw *model.RawConfig) error {
	if raw == nil {
		return nil
	}
	if err := s.validate.Struct(raw); err != nil {
		return appErrors.Wrap(err, appErrors.ErrConfigurationInvalid.Code, appErrors.ErrConfigurationInvalid.Status, "validate configuration")
	}
	return nil
}

// evolveParams merges the configuration object's
// genetic_algorithm_params over the service defaults.
func (s *Service) evolveParams(raw *model.RawConfig) evolve.Params {
	p := evolve.DefaultParams()
	if s.defaults.PopulationSize > 0 {
		p.PopulationSize = s.defaults.PopulationSize
	}
	if s.defaults.Generations > 0 {
		p.Generations = s.defaults.Generations
	}
	if s.defaults.MutationRate > 0 {
		p.MutationRate = s.defaults.MutationRate
	}
	if s.defaults.CrossoverRate > 0 {
		p.CrossoverRate = s.defaults.CrossoverRate
	}
	if s.defaults.EliteSize > 0 {
		p.EliteSize = s.defaults.EliteSize
	}
	if s.defaults.StagnationLimit > 0 {
		p.StagnationLimit = s.defaults.StagnationLimit
	}
	if s.defaults.TournamentSize > 0 {
		p.TournamentSize = s.defaults.TournamentSize
	}

	ga := raw.GeneticAlgorithmParams
	if ga.PopulationSize > 0 {
		p.PopulationSize = ga.PopulationSize
	}
	if ga.Generations > 0 {
		p.Generations = ga.Generations
	}
	if ga.MutationRate > 0 {
		p.MutationRate = ga.MutationRate
	}
	if ga.CrossoverRate > 0 {
		p.CrossoverRate = ga.CrossoverRate
	}
	if ga.EliteSize > 0 {
		p.EliteSize = ga.EliteSize
	}
	if ga.EarlyStoppingPatience > 0 {
		p.StagnationLimit = ga.EarlyStoppingPatience
	}
	return p
}

// exportSolutions renders every returned solution with its displayed
// fitness.
func (s *Service) exportSolutions(cat *model.Catalog, bag *requirement.Bag, result *evolve.Result) []export.Solution {
	exporter := export.New(cat)
	out := make([]export.Solution, 0, len(result.Solutions))
	for _, sol := range result.Solutions {
		out = append(out, exporter.Build(sol.Chromosome, sol.Rank, sol.DisplayFitness, bag.NonElectiveTotal(), bag.ElectiveTotal()))
	}
	return out
}
