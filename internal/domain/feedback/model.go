// Package feedback collects star ratings and comments from signed-in users
// and summarizes them for admins.
package feedback

import (
	"math"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is one stored submission. UserName is "Anonymous" when the
// account has no display name.
type Feedback struct {
	ID        int64     `json:"id"`
	Rating    int       `json:"rating"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
}

type SubmitRequest struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Message string `json:"message" validate:"notblank"`
}

// RatingCount is the share of submissions that gave one star value.
type RatingCount struct {
	Rating     int     `json:"rating"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Stats lists every rating from MinRating to MaxRating, including those
// nobody gave.
type Stats struct {
	Total         int           `json:"total"`
	AverageRating float64       `json:"averageRating"`
	Ratings       []RatingCount `json:"ratings"`
}

// Summarize computes Stats over items. Average and percentages are rounded
// to one decimal and are zero for an empty list.
func Summarize(items []Feedback) Stats {
	st := Stats{Total: len(items), Ratings: make([]RatingCount, 0, MaxRating-MinRating+1)}
	counts := make(map[int]int, MaxRating)
	sum := 0
	for _, f := range items {
		counts[f.Rating]++
		sum += f.Rating
	}
	if st.Total > 0 {
		st.AverageRating = round1(float64(sum) / float64(st.Total))
	}
	for r := MinRating; r <= MaxRating; r++ {
		rc := RatingCount{Rating: r, Count: counts[r]}
		if st.Total > 0 {
			rc.Percentage = round1(float64(rc.Count) * 100 / float64(st.Total))
		}
		st.Ratings = append(st.Ratings, rc)
	}
	return st
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
