package models

import "math"

// AggregateTotals are profile-level sums over the collected posts
type AggregateTotals struct {
	Views     int64 `json:"views"`
	Likes     int64 `json:"likes"`
	Comments  int64 `json:"comments"`
	Saves     int64 `json:"saves"`
	Shares    int64 `json:"shares"`
	Followers int64 `json:"followers"`
}

// Aggregate sums every counter across posts. Followers is left at 0; see ProfileResult.Totals.
// Sums saturate at math.MaxInt64 and negative counters are ignored.
func Aggregate(posts []PostMetrics) AggregateTotals {
	var t AggregateTotals
	for _, p := range posts {
		t.Views = addCount(t.Views, p.Views)
		t.Likes = addCount(t.Likes, p.Likes)
		t.Comments = addCount(t.Comments, p.Comments)
		t.Saves = addCount(t.Saves, p.Saves)
		t.Shares = addCount(t.Shares, p.Shares)
	}
	return t
}

func addCount(total, n int64) int64 {
	if n <= 0 {
		return total
	}
	if total > math.MaxInt64-n {
		return math.MaxInt64
	}
	return total + n
}
