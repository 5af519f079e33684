// Package resolver enumerates eligible faculty and rooms for a
// class, ranking faculty by stability, coordinator preference,
// workload, and experience.
package resolver

import (
	"sort"

	"github.com/campusforge/timetable-engine/internal/model"
)

// WorkloadSource supplies the current-week per-faculty load used to
// rank candidates; the chromosome is the natural implementer.
type WorkloadSource interface {
	WorkloadOf(facultyID string) int
}

// Options configure the ranking beyond the catalog itself.
type Options struct {
	// ForceCoordinatorAssignments, when true and the section has a
	// qualified coordinator, collapses the candidate list to that
	// coordinator alone.
	ForceCoordinatorAssignments bool

	// Pinned, when non-empty, is returned as the sole candidate: the
	// chromosome's recorded (section, subject) -> faculty stability
	// mapping.
	Pinned string
}

// Resolver exposes candidate faculty/room enumeration over a fixed
// Catalog.
type Resolver struct {
	cat *model.Catalog
}

// New builds a Resolver bound to cat.
func New(cat *model.Catalog) *Resolver {
	return &Resolver{cat: cat}
}

// CandidateFaculty returns an ordered list of eligible faculty ids
// for (subjectID, sectionID), most preferred first.
func (r *Resolver) CandidateFaculty(subjectID, sectionID string, workload WorkloadSource, opts Options) []string {
	if opts.Pinned != "" {
		return []string{opts.Pinned}
	}

	var qualified []string
	for fid, f := range r.cat.Faculty {
		if f.Subjects[subjectID] {
			qualified = append(qualified, fid)
		}
	}
	if len(qualified) == 0 {
		return []string{model.NoFacultyID}
	}

	coordinator := r.cat.SectionCoordinator[sectionID]
	coordinatorQualified := coordinator != "" && r.cat.Faculty[coordinator] != nil && r.cat.Faculty[coordinator].Subjects[subjectID]

	if coordinatorQualified && opts.ForceCoordinatorAssignments {
		return []string{coordinator}
	}

	rankSum := r.rankSums(qualified, workload)
	sort.Slice(qualified, func(i, j int) bool {
		if rankSum[qualified[i]] != rankSum[qualified[j]] {
			return rankSum[qualified[i]] < rankSum[qualified[j]]
		}
		return qualified[i] < qualified[j]
	})

	if coordinatorQualified {
		qualified = moveToFront(qualified, coordinator)
	}
	return qualified
}

// rankSums scores each candidate as the sum of two competition
// ranks: position within workload-ascending order plus position
// within experience-descending order. Equal values share a rank, so
// the two scales never bleed into each other; a lower sum is more
// preferred.
func (r *Resolver) rankSums(candidates []string, workload WorkloadSource) map[string]int {
	loadOf := func(id string) int {
		if workload != nil {
			return workload.WorkloadOf(id)
		}
		return 0
	}
	expOf := func(id string) float64 {
		if f, ok := r.cat.Faculty[id]; ok {
			return f.Experience
		}
		return 0
	}

	sums := make(map[string]int, len(candidates))
	for _, id := range candidates {
		loadRank, expRank := 1, 1
		for _, other := range candidates {
			if loadOf(other) < loadOf(id) {
				loadRank++
			}
			if expOf(other) > expOf(id) {
				expRank++
			}
		}
		sums[id] = loadRank + expRank
	}
	return sums
}

func moveToFront(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	out = append(out, id)
	for _, other := range ids {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

// CandidateRooms returns an ordered list of eligible room ids for a
// class, most preferred first: lab pool then any lab room for labs,
// home room then any sufficient-capacity room for theory, any room
// as the last resort for both.
func (r *Resolver) CandidateRooms(subjectID, sectionID string, isLab bool) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	if isLab {
		if subj, ok := r.cat.Subjects[subjectID]; ok {
			for _, roomID := range subj.LabRooms {
				add(roomID)
			}
		}
		var labIDs []string
		for id, room := range r.cat.Rooms {
			if room.Kind == model.RoomLaboratory {
				labIDs = append(labIDs, id)
			}
		}
		sort.Strings(labIDs)
		for _, id := range labIDs {
			add(id)
		}
	} else {
		section := r.cat.Sections[sectionID]
		if section != nil && section.HomeRoomID != "" {
			if room, ok := r.cat.Rooms[section.HomeRoomID]; ok && room.Capacity >= section.StudentCount {
				add(room.ID)
			}
		}
		var sufficient []string
		for id, room := range r.cat.Rooms {
			if section != nil && room.Capacity >= section.StudentCount {
				sufficient = append(sufficient, id)
			}
		}
		sort.Strings(sufficient)
		for _, id := range sufficient {
			add(id)
		}
	}

	var allIDs []string
	for id := range r.cat.Rooms {
		allIDs = append(allIDs, id)
	}
	sort.Strings(allIDs)
	for _, id := range allIDs {
		add(id)
	}
	return out
}
