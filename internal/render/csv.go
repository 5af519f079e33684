package render

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/campusforge/timetable-engine/internal/export"
)

var detailedHeaders = []string{
	"section_id", "section_name", "subject_id", "subject_name",
	"faculty_id", "faculty_name", "room_id", "room_name",
	"day", "day_name", "period", "time", "kind", "lab_session_id",
}

// DetailedCSV renders a solution's detailed list as CSV bytes, one
// row per entry in the solution's own (section, day, period) order.
func DetailedCSV(sol export.Solution) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(detailedHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, rec := range sol.Detailed {
		row := []string{
			rec.SectionID, rec.SectionName, rec.SubjectID, rec.SubjectName,
			rec.FacultyID, rec.FacultyName, rec.RoomID, rec.RoomName,
			fmt.Sprintf("%d", rec.Day), rec.DayName, fmt.Sprintf("%d", rec.Period),
			rec.Time, rec.Kind, rec.LabSessionID,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
