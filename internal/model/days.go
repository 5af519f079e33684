package model

import "strings"

// ResolveDayIndex maps a day name to its ordinal index in
// workingDays, first by exact case-insensitive match, then by
// matching the first three letters, so "Mon" and "monday" both
// resolve.
func ResolveDayIndex(workingDays []string, name string) (int, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false
	}
	lower := strings.ToLower(name)
	for i, wd := range workingDays {
		if strings.ToLower(wd) == lower {
			return i, true
		}
	}
	prefix := lower
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	for i, wd := range workingDays {
		wdLower := strings.ToLower(wd)
		wdPrefix := wdLower
		if len(wdPrefix) > 3 {
			wdPrefix = wdPrefix[:3]
		}
		if wdPrefix == prefix {
			return i, true
		}
	}
	return 0, false
}

// DayRange expands a start/end day-name pair (inclusive) into
// indices into workingDays. An empty endName defaults to startName.
func DayRange(workingDays []string, startName, endName string) ([]int, bool) {
	start, ok := ResolveDayIndex(workingDays, startName)
	if !ok {
		return nil, false
	}
	if strings.TrimSpace(endName) == "" {
		return []int{start}, true
	}
	end, ok := ResolveDayIndex(workingDays, endName)
	if !ok {
		return nil, false
	}
	if end < start {
		start, end = end, start
	}
	days := make([]int, 0, end-start+1)
	for d := start; d <= end; d++ {
		days = append(days, d)
	}
	return days, true
}
