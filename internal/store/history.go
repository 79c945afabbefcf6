package store

import "sort"

// DefaultRating is assigned to users with no attended contest before the
// target time.
const DefaultRating = 1500

// RatingAt resolves a user's rating as of the most recent attended contest
// strictly before startTime. The history must hold attended entries only,
// sorted ascending by contest start time. A contest starting exactly at
// startTime does not count. With no qualifying attendance the result is the
// default rating with an attendance count of zero.
func RatingAt(history []Attendance, startTime int64) HistoryRating {
	i := sort.Search(len(history), func(j int) bool {
		return history[j].Contest.StartTime >= startTime
	}) - 1
	if i < 0 {
		return HistoryRating{OldRating: DefaultRating, Acc: 0}
	}
	return HistoryRating{OldRating: history[i].Rating, Acc: i + 1}
}

// AttendedOnly filters a raw contest history down to attended entries,
// preserving order.
func AttendedOnly(history []Attendance) []Attendance {
	out := make([]Attendance, 0, len(history))
	for _, a := range history {
		if a.Attended {
			out = append(out, a)
		}
	}
	return out
}
