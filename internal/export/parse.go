package export

import (
	"encoding/json"

	"github.com/campusforge/timetable-engine/internal/model"
)

// ParseDetailed converts a detailed-list export back into entries,
// dropping the derived name/time fields. A solution exported and
// re-parsed this way reproduces its entry list exactly.
func ParseDetailed(records []DetailedRecord) []model.Entry {
	out := make([]model.Entry, 0, len(records))
	for _, rec := range records {
		out = append(out, model.Entry{
			SectionID:       rec.SectionID,
			SubjectID:       rec.SubjectID,
			FacultyID:       rec.FacultyID,
			RoomID:          rec.RoomID,
			Day:             rec.Day,
			Period:          rec.Period,
			Kind:            model.EntryKind(rec.Kind),
			LabSessionID:    rec.LabSessionID,
			Continuation:    rec.Continuation,
			ElectiveGroupID: rec.ElectiveGroupID,
			Locked:          rec.Locked,
		})
	}
	return out
}

// ParseSolution decodes a stored solution JSON and returns its
// entries, the shape the repair pipeline seeds from.
func ParseSolution(data []byte) ([]model.Entry, error) {
	var sol Solution
	if err := json.Unmarshal(data, &sol); err != nil {
		return nil, err
	}
	return ParseDetailed(sol.Detailed), nil
}
