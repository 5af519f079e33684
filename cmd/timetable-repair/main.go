// Command timetable-repair applies a batch of disruption events to a
// previously generated timetable and writes the repaired schedule,
// the substitution report, and optional before/after PDF documents.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusforge/timetable-engine/internal/export"
	"github.com/campusforge/timetable-engine/internal/generator"
	"github.com/campusforge/timetable-engine/internal/ingest"
	"github.com/campusforge/timetable-engine/internal/ledger"
	"github.com/campusforge/timetable-engine/internal/model"
	"github.com/campusforge/timetable-engine/internal/render"
	"github.com/campusforge/timetable-engine/internal/repair"
	"github.com/campusforge/timetable-engine/pkg/config"
	"github.com/campusforge/timetable-engine/pkg/logger"
	"github.com/campusforge/timetable-engine/pkg/storage"
)

type outputPayload struct {
	Solution export.Solution `json:"solution"`
	Report   repair.Report   `json:"report"`
}

func main() {
	var (
		configPath    = flag.String("config", "", "path to the parsed configuration JSON (required)")
		existingPath  = flag.String("existing", "", "path to a previously exported schedule JSON; omitted means generate one first")
		eventsPath    = flag.String("events", "", "path to the event batch JSON (required)")
		outputPath    = flag.String("output", "", "path to write the repaired schedule and report JSON")
		pdfBeforePath = flag.String("pdf-before", "", "path to write the pre-repair section grids as PDF")
		pdfAfterPath  = flag.String("pdf-after", "", "path to write the post-repair section grids as PDF")
		seed          = flag.Int64("seed", 0, "random seed; 0 picks one from the clock")
	)
	flag.Parse()

	if *configPath == "" || *eventsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: timetable-repair --config PATH --events PATH [--existing PATH] [--output PATH] [--pdf-before PATH] [--pdf-after PATH]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr, *configPath, *existingPath, *eventsPath, *outputPath, *pdfBeforePath, *pdfAfterPath, *seed); err != nil {
		logr.Error("repair failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logr *zap.Logger, configPath, existingPath, eventsPath, outputPath, pdfBeforePath, pdfAfterPath string, seed int64) error {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	loader := ingest.NewLoader(validator.New())
	raw, err := loader.LoadConfig(configPath)
	if err != nil {
		return err
	}
	payload, err := loader.LoadEvents(eventsPath)
	if err != nil {
		return err
	}

	store, err := storage.NewLocalStorage(cfg.LedgerDir)
	if err != nil {
		return err
	}
	led, err := ledger.Open(store, "")
	if err != nil {
		logr.Warn("substitution ledger unreadable, starting empty", zap.Error(err))
		led = ledger.New(store, "")
	}

	svc := generator.NewService(validator.New(), logr, cfg.GA)

	prior, err := loadPrior(svc, raw, existingPath, seed, logr)
	if err != nil {
		return err
	}

	if pdfBeforePath != "" {
		if err := writeSectionPDF(svc, raw, prior, pdfBeforePath, "Timetable (before)"); err != nil {
			return err
		}
	}

	out, err := svc.Repair(raw, generator.RepairInput{
		Prior:   prior,
		Payload: payload,
		Seed:    seed,
		Ledger:  led,
	})
	if err != nil {
		return err
	}

	logr.Info("repair finished",
		zap.Int("shifted", len(out.Report.Shifted)),
		zap.Int("substitutions", len(out.Report.Substitutions)),
		zap.Int("unassigned", len(out.Report.Unassigned)),
		zap.Int("unresolved_events", len(out.Report.UnresolvedEvents)))

	if outputPath != "" {
		data, err := json.MarshalIndent(outputPayload{Solution: out.Solution, Report: out.Report}, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return fmt.Errorf("write output %s: %w", outputPath, err)
		}
	}

	if pdfAfterPath != "" {
		entries := export.ParseDetailed(out.Solution.Detailed)
		if err := writeSectionPDF(svc, raw, entries, pdfAfterPath, "Timetable (after)"); err != nil {
			return err
		}
	}
	return nil
}

// loadPrior reads the stored schedule, or generates one when the
// caller has none yet.
func loadPrior(svc *generator.Service, raw *model.RawConfig, existingPath string, seed int64, logr *zap.Logger) ([]model.Entry, error) {
	if existingPath != "" {
		data, err := os.ReadFile(existingPath)
		if err != nil {
			return nil, fmt.Errorf("read existing schedule %s: %w", existingPath, err)
		}
		return export.ParseSolution(data)
	}

	logr.Info("no existing schedule supplied, generating one")
	out, err := svc.Generate(raw, generator.Options{Seed: seed}, nil)
	if err != nil && out == nil {
		return nil, err
	}
	if len(out.Raw.Solutions) == 0 {
		return nil, fmt.Errorf("generation produced no solutions")
	}
	return out.Raw.Solutions[0].Chromosome.Entries, nil
}

func writeSectionPDF(svc *generator.Service, raw *model.RawConfig, entries []model.Entry, path, title string) error {
	sol, err := svc.ExportPrior(raw, entries)
	if err != nil {
		return err
	}
	cat, err := model.NewCatalog(raw)
	if err != nil {
		return err
	}
	data, err := render.NewPDF(cat).RenderSections(sol, title)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write pdf %s: %w", path, err)
	}
	return nil
}
