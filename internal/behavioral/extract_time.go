package behavioral

// ExtractTimePatterns counts events by hour of day and day of week in the
// offset each timestamp was stored with
func ExtractTimePatterns(set *SessionSet) TimePatternSlice {
	slice := TimePatternSlice{PeakHour: -1, PeakWeekday: -1}
	total := 0
	for _, s := range set.Sessions() {
		for i := range s.Events {
			ts := s.Events[i].Timestamp
			slice.ByHour[ts.Hour()]++
			slice.ByWeekday[int(ts.Weekday())]++
			total++
		}
	}
	if total == 0 {
		return slice
	}
	slice.PeakHour = argmax(slice.ByHour[:])
	slice.PeakWeekday = argmax(slice.ByWeekday[:])
	return slice
}

// argmax returns the first index holding the largest value
func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}
