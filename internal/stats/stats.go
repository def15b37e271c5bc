// Package stats derives aggregate figures from a feedback collection.
package stats

import (
	"math"

	"github.com/kimhsiao/feedbacksync/internal/models"
)

// Stats is the aggregate view of a collection.
type Stats struct {
	Total            int                     `json:"total"`
	Positive         int                     `json:"positive"`
	Neutral          int                     `json:"neutral"`
	Negative         int                     `json:"negative"`
	Anonymous        int                     `json:"anonymous"`
	AverageRating    float64                 `json:"averageRating"`
	SatisfactionRate int                     `json:"satisfactionRate"`
	Categories       map[models.Category]int `json:"categories"`
}

// CategoryBreakdown describes one category of the admin breakdown.
type CategoryBreakdown struct {
	Category      models.Category `json:"name"`
	Count         int             `json:"count"`
	Percentage    float64         `json:"percentage"`
	AverageRating float64         `json:"averageRating"`
}

// Project computes the aggregate for records. It never fails; an empty
// collection yields zero counts and a zero mean.
func Project(records []models.Feedback) Stats {
	s := Stats{Categories: make(map[models.Category]int)}
	if len(records) == 0 {
		return s
	}

	sum := 0
	satisfied := 0
	for i := range records {
		r := &records[i]
		s.Total++
		sum += r.Rating
		if r.Rating >= 4 {
			satisfied++
		}
		if r.IsAnonymous {
			s.Anonymous++
		}
		switch r.Sentiment {
		case models.SentimentPositive:
			s.Positive++
		case models.SentimentNegative:
			s.Negative++
		default:
			s.Neutral++
		}
		s.Categories[categoryOf(r)]++
	}

	s.AverageRating = round1(float64(sum) / float64(s.Total))
	s.SatisfactionRate = int(math.Round(float64(satisfied) * 100 / float64(s.Total)))
	return s
}

// Categories returns the per-category breakdown in the fixed category order,
// omitting categories with no records.
func Categories(records []models.Feedback) []CategoryBreakdown {
	if len(records) == 0 {
		return nil
	}
	counts := make(map[models.Category]int)
	sums := make(map[models.Category]int)
	for i := range records {
		c := categoryOf(&records[i])
		counts[c]++
		sums[c] += records[i].Rating
	}

	out := make([]CategoryBreakdown, 0, len(counts))
	for _, c := range models.Categories {
		n := counts[c]
		if n == 0 {
			continue
		}
		out = append(out, CategoryBreakdown{
			Category:      c,
			Count:         n,
			Percentage:    round1(float64(n) * 100 / float64(len(records))),
			AverageRating: round1(float64(sums[c]) / float64(n)),
		})
	}
	return out
}

// RatingDistribution counts records per star value; index 0 is one star.
func RatingDistribution(records []models.Feedback) [5]int {
	var dist [5]int
	for i := range records {
		if r := records[i].Rating; r >= 1 && r <= 5 {
			dist[r-1]++
		}
	}
	return dist
}

func categoryOf(r *models.Feedback) models.Category {
	if c, ok := models.ParseCategory(string(r.Category)); ok {
		return c
	}
	return models.CategoryGeneral
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
