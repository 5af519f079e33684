// Package repair implements the incremental repair pipeline: given a
// prior schedule and a batch of disruption events, it computes the
// entries those events invalidate, tries a deterministic same-day
// shift first, then reseeds the evolutionary driver with biased
// candidate pools for whatever remains, and finally reports what it
// did.
package repair

import (
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/campusforge/timetable-engine/internal/chromosome"
	"github.com/campusforge/timetable-engine/internal/constraint"
	"github.com/campusforge/timetable-engine/internal/evolve"
	"github.com/campusforge/timetable-engine/internal/events"
	"github.com/campusforge/timetable-engine/internal/ledger"
	"github.com/campusforge/timetable-engine/internal/model"
	"github.com/campusforge/timetable-engine/internal/requirement"
	"github.com/campusforge/timetable-engine/internal/resolver"
	"github.com/campusforge/timetable-engine/internal/variation"
)

// ShiftedRecord is one affected entry resolved by the deterministic
// same-day shift.
type ShiftedRecord struct {
	SectionID      string `json:"section_id"`
	SubjectID      string `json:"subject_id"`
	Day            int    `json:"day"`
	OriginalPeriod int    `json:"original_period"`
	NewPeriod      int    `json:"new_period"`
}

// SubstitutionRecord is one affected entry resolved by the reseeded
// search.
type SubstitutionRecord struct {
	SectionID       string `json:"section_id"`
	SubjectID       string `json:"subject_id"`
	Day             int    `json:"day"`
	Period          int    `json:"period"`
	OriginalFaculty string `json:"original_faculty"`
	NewFaculty      string `json:"new_faculty"`
	OriginalRoom    string `json:"original_room,omitempty"`
	NewRoom         string `json:"new_room,omitempty"`
}

// UnassignedRecord is an affected entry the search could not refill.
type UnassignedRecord struct {
	SectionID string `json:"section_id"`
	SubjectID string `json:"subject_id"`
	Day       int    `json:"day"`
	Period    int    `json:"period"`
}

// Report is the diagnostics the repair pipeline returns alongside the
// repaired chromosome.
type Report struct {
	Shifted          []ShiftedRecord      `json:"shifted"`
	Substitutions    []SubstitutionRecord `json:"substitutions"`
	Unassigned       []UnassignedRecord   `json:"unassigned"`
	UnresolvedEvents []events.Unresolved  `json:"unresolved_events,omitempty"`
}

// Result is the outcome of one repair run.
type Result struct {
	Chromosome *chromosome.Chromosome
	Report     Report
	Progress   evolve.Snapshot
}

// Params tune the reseeded search.
type Params struct {
	ReseedPopulationSize int
	Evolve               evolve.Params
	Variation            variation.Params
}

// DefaultParams mirrors the REPAIR_* config defaults.
func DefaultParams() Params {
	return Params{
		ReseedPopulationSize: 20,
		Evolve:               evolve.DefaultParams(),
		Variation:            variation.DefaultParams(),
	}
}

// Pipeline runs repairs against a fixed catalog/bag/ledger.
type Pipeline struct {
	Cat    *model.Catalog
	Bag    *requirement.Bag
	Ledger *ledger.Ledger
	Params Params

	logger *zap.Logger
}

// New builds a Pipeline.
func New(cat *model.Catalog, bag *requirement.Bag, led *ledger.Ledger, params Params, logger *zap.Logger) *Pipeline {
	if params.ReseedPopulationSize <= 0 {
		params.ReseedPopulationSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{Cat: cat, Bag: bag, Ledger: led, Params: params, logger: logger}
}

// affectedEntry pairs an entry with the event index that invalidated
// it and which of its fields the event hit.
type affectedEntry struct {
	entry    model.Entry
	eventIdx int
	kind     string // "faculty", "room", or "section" - which field was hit
}

// Run executes the full pipeline over prior, a previously generated
// schedule, against payload's event batch: affected-entry scan,
// deterministic shift, masked reseed, evolutionary re-search, and
// ledger accounting. When no prior entry is affected (no events, or
// only ignored ones), the prior schedule comes back unchanged.
func (p *Pipeline) Run(prior []model.Entry, payload events.Payload, rng *rand.Rand, observer evolve.Observer) (*Result, error) {
	applied := events.Apply(p.Cat, payload)
	workingCat := applied.Catalog
	for _, un := range applied.Unresolved {
		p.logger.Warn("event ignored",
			zap.Int("index", un.Index),
			zap.String("type", un.Type),
			zap.String("reason", un.Reason))
	}

	seed := chromosome.FromEntries(workingCat, prior)

	affected := p.computeAffected(seed, payload.Events)

	report := Report{UnresolvedEvents: applied.Unresolved}
	if len(affected) == 0 {
		// Nothing in the prior schedule is invalidated: it is returned
		// as is, without a re-search.
		return &Result{Chromosome: seed, Report: report, Progress: evolve.Snapshot{Status: evolve.StatusCompleted}}, nil
	}

	remaining := affected[:0:0]
	for _, aff := range affected {
		ev := payload.Events[aff.eventIdx]
		if ev.Type == string(events.KindFacultyPartialAbsence) && ev.Preferences.PreferShift {
			if newPeriod, ok := p.tryShift(seed, workingCat, aff.entry, ev); ok {
				report.Shifted = append(report.Shifted, ShiftedRecord{
					SectionID:      aff.entry.SectionID,
					SubjectID:      aff.entry.SubjectID,
					Day:            aff.entry.Day,
					OriginalPeriod: aff.entry.Period,
					NewPeriod:      newPeriod,
				})
				continue
			}
		}
		remaining = append(remaining, aff)
	}

	res := resolver.New(workingCat)
	engine := variation.New(workingCat, p.Bag, res, p.Params.Variation)
	evaluator := constraint.New(workingCat, p.Bag)

	masked, pools := p.maskAndBuildPools(seed, remaining, res)

	population := p.reseedPopulation(masked, pools, rng)
	if len(population) == 0 {
		population = []*chromosome.Chromosome{masked.Clone()}
	}

	driver := evolve.NewDriver(workingCat, engine, evaluator, p.Params.Evolve)
	runResult, err := driver.RunSeeded(population, rng, observer)
	if err != nil {
		return nil, err
	}

	var best *chromosome.Chromosome
	if len(runResult.Solutions) > 0 {
		best = runResult.Solutions[0].Chromosome
	} else {
		best = masked
	}

	p.applySameSubstitutePreference(best, remaining, pools, payload.Events)

	p.buildReport(&report, best, remaining)
	for _, sub := range report.Substitutions {
		if sub.NewFaculty != sub.OriginalFaculty && sub.NewFaculty != model.NoFacultyID {
			p.Ledger.Increment(sub.NewFaculty, 1)
		}
	}
	if err := p.Ledger.Persist(); err != nil {
		// Non-fatal: the repaired schedule is still worth returning;
		// fairness accounting just resumes from the last good write.
		p.logger.Error("persist substitution ledger", zap.Error(err))
	}

	return &Result{Chromosome: best, Report: report, Progress: runResult.Progress}, nil
}

// computeAffected scans the prior schedule for entries whose
// faculty/room/section is listed in an unavailability event over its
// resolved slot window. Deduplicated, ordered for reproducibility.
func (p *Pipeline) computeAffected(seed *chromosome.Chromosome, evs []events.Event) []affectedEntry {
	seenEntry := make(map[int]bool)
	var out []affectedEntry

	for idx, ev := range evs {
		if !events.IsUnavailabilityEvent(ev) {
			continue
		}
		kind, entityID := events.AffectedKind(ev)
		if entityID == "" {
			continue
		}
		slots, err := events.ResolveSlots(seed.Cat, ev)
		if err != nil {
			continue
		}
		slotSet := make(map[model.Slot]bool, len(slots))
		for _, sl := range slots {
			slotSet[sl] = true
		}

		for i, e := range seed.Entries {
			if seenEntry[i] {
				continue
			}
			var match bool
			switch kind {
			case "faculty":
				match = e.FacultyID == entityID
			case "room":
				match = e.RoomID == entityID
			case "section":
				match = e.SectionID == entityID
			}
			if !match || !slotSet[e.Slot()] {
				continue
			}
			seenEntry[i] = true
			out = append(out, affectedEntry{entry: e, eventIdx: idx, kind: kind})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].entry, out[j].entry
		if a.SectionID != b.SectionID {
			return a.SectionID < b.SectionID
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Period < b.Period
	})
	return out
}

// tryShift finds a same-day period that is not globally forbidden
// and not already occupied by the entry's faculty/section/room, and
// moves the entry there. First fit in period order.
func (p *Pipeline) tryShift(seed *chromosome.Chromosome, cat *model.Catalog, e model.Entry, ev events.Event) (int, bool) {
	forbidden := events.ForbiddenPeriods(cat, ev)
	for _, period := range cat.Periods {
		if period.ID == e.Period || forbidden[period.ID] {
			continue
		}
		candidate := e
		candidate.Period = period.ID
		seed.RemoveWhere(func(x model.Entry) bool { return sameEntry(x, e) })
		if seed.CanPlace(candidate) {
			seed.Add(candidate)
			return period.ID, true
		}
		seed.Add(e)
	}
	return 0, false
}

func sameEntry(a, b model.Entry) bool {
	return a.SectionID == b.SectionID && a.SubjectID == b.SubjectID && a.Day == b.Day &&
		a.Period == b.Period && a.FacultyID == b.FacultyID && a.RoomID == b.RoomID && a.Kind == b.Kind
}

// candidatePool is the biased substitution pool for one affected
// entry.
type candidatePool struct {
	original model.Entry
	faculty  []string
	rooms    []string
}

// maskAndBuildPools removes every remaining affected entry from a
// cloned seed chromosome and builds its biased candidate pool:
// least-loaded qualified faculty minus the absent set, and the
// resolver's candidate rooms with the original appended as a
// fallback. Rooms are not filtered by occupancy here; the reseed's
// CanPlace check rejects any that are taken.
func (p *Pipeline) maskAndBuildPools(seed *chromosome.Chromosome, remaining []affectedEntry, res *resolver.Resolver) (*chromosome.Chromosome, []candidatePool) {
	masked := seed.Clone()
	pools := make([]candidatePool, 0, len(remaining))

	removeKeys := make(map[string]bool, len(remaining))
	for _, aff := range remaining {
		removeKeys[entryKey(aff.entry)] = true
	}
	masked.RemoveWhere(func(e model.Entry) bool { return removeKeys[entryKey(e)] })

	for _, aff := range remaining {
		e := aff.entry
		isLab := e.Kind == model.EntryLab

		var faculty []string
		if aff.kind == "faculty" {
			qualified := res.CandidateFaculty(e.SubjectID, e.SectionID, masked, resolver.Options{})
			for _, fid := range qualified {
				if fid != e.FacultyID && fid != model.NoFacultyID {
					faculty = append(faculty, fid)
				}
			}
			faculty = p.Ledger.OrderedByLoad(faculty)
		} else {
			faculty = []string{e.FacultyID}
		}

		var rooms []string
		if aff.kind == "room" {
			rooms = res.CandidateRooms(e.SubjectID, e.SectionID, isLab)
			rooms = appendIfMissing(rooms, e.RoomID)
		} else {
			rooms = []string{e.RoomID}
		}

		pools = append(pools, candidatePool{original: e, faculty: faculty, rooms: rooms})
	}

	return masked, pools
}

func entryKey(e model.Entry) string {
	return e.SectionID + "\x00" + e.SubjectID + "\x00" + e.FacultyID + "\x00" + e.RoomID
}

func appendIfMissing(ids []string, id string) []string {
	if id == "" {
		return ids
	}
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// reseedPopulation samples each pool uniformly per variant atop the
// masked seed chromosome. The first variant takes the head of every
// pool instead of sampling: pools are ranked least-loaded first, so
// with equal fitness the fairest assignment wins the stable sort.
func (p *Pipeline) reseedPopulation(masked *chromosome.Chromosome, pools []candidatePool, rng *rand.Rand) []*chromosome.Chromosome {
	size := p.Params.ReseedPopulationSize
	population := make([]*chromosome.Chromosome, 0, size)

	for v := 0; v < size; v++ {
		variant := masked.Clone()
		for _, pool := range pools {
			if len(pool.faculty) == 0 || len(pool.rooms) == 0 {
				continue
			}
			fi, ri := 0, 0
			if v > 0 {
				fi = rng.Intn(len(pool.faculty))
				ri = rng.Intn(len(pool.rooms))
			}
			candidate := pool.original
			candidate.FacultyID = pool.faculty[fi]
			candidate.RoomID = pool.rooms[ri]
			if variant.CanPlace(candidate) {
				variant.Add(candidate)
			}
		}
		population = append(population, variant)
	}
	return population
}

// applySameSubstitutePreference: for every section with multiple
// affected entries whose event requested same_substitute_per_section,
// intersect candidate faculty sets and pin the least-loaded common
// faculty across all of them, skipping any placement that would
// reintroduce a clash.
func (p *Pipeline) applySameSubstitutePreference(ch *chromosome.Chromosome, remaining []affectedEntry, pools []candidatePool, evs []events.Event) {
	bySection := make(map[string][]int)
	for i, aff := range remaining {
		ev := evs[aff.eventIdx]
		if ev.Preferences.SameSubstitutePerSection {
			bySection[aff.entry.SectionID] = append(bySection[aff.entry.SectionID], i)
		}
	}

	for _, idxs := range bySection {
		if len(idxs) < 2 {
			continue
		}
		common := stringSet(pools[idxs[0]].faculty)
		for _, i := range idxs[1:] {
			common = intersect(common, stringSet(pools[i].faculty))
		}
		if len(common) == 0 {
			continue
		}
		ordered := p.Ledger.OrderedByLoad(setKeys(common))
		if len(ordered) == 0 {
			continue
		}
		pick := ordered[0]

		for _, i := range idxs {
			original := remaining[i].entry
			repinEntry(ch, original, pick)
		}
	}
}

func repinEntry(ch *chromosome.Chromosome, original model.Entry, newFaculty string) {
	for _, e := range ch.Entries {
		if e.SectionID != original.SectionID || e.SubjectID != original.SubjectID || e.Day != original.Day {
			continue
		}
		if e.FacultyID == "" || e.FacultyID == model.NoFacultyID || e.FacultyID == newFaculty {
			continue
		}
		candidate := e
		candidate.FacultyID = newFaculty
		removed := ch.RemoveWhere(func(x model.Entry) bool { return sameEntry(x, e) })
		if len(removed) == 0 {
			continue
		}
		if ch.CanPlace(candidate) {
			ch.Add(candidate)
		} else {
			ch.Add(e)
		}
	}
}

func stringSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func intersect(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func setKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// buildReport compares each originally affected entry against the
// final chromosome to classify it as a substitution or a failure.
// Matching prefers the exact original slot, then any same-day entry
// of the same class; every final entry is consumed at most once.
func (p *Pipeline) buildReport(report *Report, ch *chromosome.Chromosome, remaining []affectedEntry) {
	used := make(map[int]bool, len(remaining))
	find := func(e model.Entry) (model.Entry, bool) {
		for i, cand := range ch.Entries {
			if used[i] || cand.SectionID != e.SectionID || cand.SubjectID != e.SubjectID || cand.Day != e.Day {
				continue
			}
			if cand.Period == e.Period {
				used[i] = true
				return cand, true
			}
		}
		for i, cand := range ch.Entries {
			if used[i] || cand.SectionID != e.SectionID || cand.SubjectID != e.SubjectID || cand.Day != e.Day {
				continue
			}
			used[i] = true
			return cand, true
		}
		return model.Entry{}, false
	}

	for _, aff := range remaining {
		e := aff.entry
		match, ok := find(e)
		if !ok {
			report.Unassigned = append(report.Unassigned, UnassignedRecord{
				SectionID: e.SectionID, SubjectID: e.SubjectID, Day: e.Day, Period: e.Period,
			})
			continue
		}
		report.Substitutions = append(report.Substitutions, SubstitutionRecord{
			SectionID:       e.SectionID,
			SubjectID:       e.SubjectID,
			Day:             e.Day,
			Period:          match.Period,
			OriginalFaculty: e.FacultyID,
			NewFaculty:      match.FacultyID,
			OriginalRoom:    e.RoomID,
			NewRoom:         match.RoomID,
		})
	}
}
