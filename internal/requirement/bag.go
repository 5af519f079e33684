// Package requirement derives the required-class bag from a Catalog:
// the flat list of (section, subject, kind, count) units every
// candidate chromosome must eventually cover, including elective
// group resolution.
package requirement

import (
	"fmt"
	"sort"

	"github.com/campusforge/timetable-engine/internal/model"
	appErrors "github.com/campusforge/timetable-engine/pkg/errors"
)

// Unit is one line of the required-class bag: section SectionID must
// receive Count sessions of subject SubjectID. For electives, GroupID
// ties together every unit of one section's elective group; Members,
// when set, lists alternative subject ids the placement phase may
// fall back to.
type Unit struct {
	SectionID string
	SubjectID string
	Kind      model.EntryKind
	Count     int
	GroupID   string   // non-empty only for elective units
	Members   []string // candidate subject ids for an elective unit (len > 1 before a pick is made)
}

// Bag is the full set of units for one catalog, plus a lookup index
// by section for fast iteration during initialisation and repair.
type Bag struct {
	Units     []Unit
	BySection map[string][]int // section id -> indices into Units
}

// Build derives the required-class bag for every section in the
// catalog. Theory and lab units come straight from the subject
// tables; elective units go through a pool resolution step.
func Build(cat *model.Catalog, electivePicker func(sectionID string, pool []string) string) (*Bag, error) {
	bag := &Bag{BySection: make(map[string][]int)}

	sectionIDs := make([]string, 0, len(cat.Sections))
	for id := range cat.Sections {
		sectionIDs = append(sectionIDs, id)
	}
	sort.Strings(sectionIDs)

	for _, sectionID := range sectionIDs {
		section := cat.Sections[sectionID]
		deptID := cat.SectionDepartment[sectionID]

		for _, subjID := range sortedSubjectIDs(cat) {
			subj := cat.Subjects[subjID]
			if subj.IsElective {
				continue // electives are handled via the section's pool below
			}
			if !subj.AppliesToDepartment(deptID) {
				continue
			}
			if subj.Semester != "" && section.Semester != "" && subj.Semester != section.Semester {
				continue
			}
			if subj.WeeklyCount <= 0 {
				continue
			}
			kind := model.EntryTheory
			if subj.Kind == model.SubjectLab {
				kind = model.EntryLab
			}
			bag.add(Unit{SectionID: sectionID, SubjectID: subjID, Kind: kind, Count: subj.WeeklyCount})
		}

		if err := addElectiveUnits(cat, bag, section, electivePicker); err != nil {
			return nil, err
		}
	}

	if len(bag.Units) == 0 {
		return nil, appErrors.Clone(appErrors.ErrRequirementInfeasible, "no subject applies to any section")
	}
	return bag, nil
}

// addElectiveUnits appends one elective Unit per subject id the
// section lists, all sharing one group id. An empty electives list
// falls back to a single pick from the semester's elective pool; for
// that auto-chosen unit the placement phase may cycle through
// Members if the pick proves unplaceable.
func addElectiveUnits(cat *model.Catalog, bag *Bag, section *model.Section, electivePicker func(string, []string) string) error {
	groupID := fmt.Sprintf("%s::elective", section.ID)

	if len(section.Electives) == 0 {
		pool := cat.ElectivesForSemester(section.Semester)
		if len(pool) == 0 {
			return nil // no elective offering applies to this section; not an error
		}
		sort.Strings(pool)
		chosen := pool[0]
		if len(pool) > 1 && electivePicker != nil {
			chosen = electivePicker(section.ID, pool)
		}
		bag.add(Unit{
			SectionID: section.ID,
			SubjectID: chosen,
			Kind:      model.EntryElective,
			Count:     1,
			GroupID:   groupID,
			Members:   pool,
		})
		return nil
	}

	for _, id := range section.Electives {
		if _, ok := cat.Subjects[id]; !ok {
			return appErrors.Clone(appErrors.ErrRequirementInfeasible, fmt.Sprintf("section %s lists unknown elective %q", section.ID, id))
		}
		bag.add(Unit{
			SectionID: section.ID,
			SubjectID: id,
			Kind:      model.EntryElective,
			Count:     1,
			GroupID:   groupID,
		})
	}
	return nil
}

func (b *Bag) add(u Unit) {
	idx := len(b.Units)
	b.Units = append(b.Units, u)
	b.BySection[u.SectionID] = append(b.BySection[u.SectionID], idx)
}

// TotalSessions returns the sum of every unit's Count across the
// whole bag, electives included.
func (b *Bag) TotalSessions() int {
	total := 0
	for _, u := range b.Units {
		total += u.Count
	}
	return total
}

// NonElectiveTotal returns the sum of Count over theory and lab
// units only, the coverage-ratio denominator.
func (b *Bag) NonElectiveTotal() int {
	total := 0
	for _, u := range b.Units {
		if u.Kind != model.EntryElective {
			total += u.Count
		}
	}
	return total
}

// ElectiveTotal returns the sum of Count over elective units only,
// the elective-coverage-ratio denominator.
func (b *Bag) ElectiveTotal() int {
	total := 0
	for _, u := range b.Units {
		if u.Kind == model.EntryElective {
			total += u.Count
		}
	}
	return total
}

func sortedSubjectIDs(cat *model.Catalog) []string {
	ids := make([]string, 0, len(cat.Subjects))
	for id := range cat.Subjects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
