// Package models provides data model definitions for feedbacksync.
package models

import (
	"strings"
	"time"
)

// AnonymousName is shown in place of the author for anonymous feedback.
const AnonymousName = "Anonymous"

// Category classifies a feedback record.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryService    Category = "service"
	CategoryProduct    Category = "product"
	CategorySuggestion Category = "suggestion"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryGeneral, CategoryService, CategoryProduct, CategorySuggestion}

// ParseCategory maps free input to a Category. Empty input yields general.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryGeneral, true
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Sentiment is the tone derived from feedback text at submission time.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Feedback is the unit of storage. Records are never edited after creation.
type Feedback struct {
	ID          string    `json:"id" yaml:"id"`
	Text        string    `json:"text" yaml:"text"`
	Rating      int       `json:"rating" yaml:"rating"`
	AuthorName  string    `json:"name" yaml:"name"`
	IsAnonymous bool      `json:"isAnonymous" yaml:"is_anonymous"`
	Category    Category  `json:"category" yaml:"category"`
	Sentiment   Sentiment `json:"sentiment" yaml:"sentiment"`
	CreatedAt   time.Time `json:"timestamp" yaml:"timestamp"`
}

// DisplayName returns the author as it should be shown.
func (f *Feedback) DisplayName() string {
	if f.IsAnonymous || strings.TrimSpace(f.AuthorName) == "" {
		return AnonymousName
	}
	return f.AuthorName
}

// Normalize fills defaults for records decoded from older payloads.
func (f *Feedback) Normalize() {
	if f.Category == "" {
		f.Category = CategoryGeneral
	}
	if f.Sentiment == "" {
		f.Sentiment = SentimentNeutral
	}
	if f.IsAnonymous {
		f.AuthorName = AnonymousName
	}
}

// Draft is the user input a record is built from.
type Draft struct {
	Text       string   `json:"text" validate:"required"`
	Rating     int      `json:"rating" validate:"min=1,max=5"`
	AuthorName string   `json:"name" validate:"required_if=Anonymous false"`
	Anonymous  bool     `json:"isAnonymous"`
	Category   Category `json:"category" validate:"omitempty,oneof=general service product suggestion"`
}

// IDs returns the ids of records in order.
func IDs(records []Feedback) []string {
	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
	}
	return ids
}

// Clone returns a copy of records that does not share backing storage.
func Clone(records []Feedback) []Feedback {
	if records == nil {
		return []Feedback{}
	}
	out := make([]Feedback, len(records))
	copy(out, records)
	return out
}
