package feedback

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/uuid"
)

var validate = validator.New()

// fieldMessages maps validator failures to the user-facing messages.
var fieldMessages = map[string]string{
	"Text":       "please enter your feedback",
	"Rating":     "please select a rating between 1 and 5",
	"AuthorName": "please enter your name or enable anonymous mode",
	"Category":   "unknown category",
}

// Normalize trims the draft's free-text fields and lower-cases the category.
func Normalize(d models.Draft) models.Draft {
	d.Text = strings.TrimSpace(d.Text)
	d.AuthorName = strings.TrimSpace(d.AuthorName)
	d.Category = models.Category(strings.ToLower(strings.TrimSpace(string(d.Category))))
	return d
}

// Validate rejects drafts that must never reach the sync engine: empty text
// after trimming, a rating outside [1,5], a missing name when not anonymous,
// or an unknown category.
func Validate(d models.Draft) error {
	d = Normalize(d)
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.Wrap(errors.ErrValidation, "invalid feedback", err)
	}
	msg, ok := fieldMessages[verrs[0].Field()]
	if !ok {
		msg = verrs[0].Error()
	}
	return errors.Wrap(errors.ErrValidation, msg, err)
}

// Builder constructs complete records from drafts.
type Builder struct {
	NewID uuid.Generator
	Now   func() time.Time
}

// NewBuilder returns a Builder using random UUIDs and the wall clock.
func NewBuilder() *Builder {
	return &Builder{NewID: uuid.New, Now: time.Now}
}

// Build validates d and returns the record it describes: a fresh id, the
// creation time, a default category, and the sentiment derived from the text.
func (b *Builder) Build(d models.Draft) (models.Feedback, error) {
	if err := Validate(d); err != nil {
		return models.Feedback{}, err
	}
	d = Normalize(d)

	category := d.Category
	if category == "" {
		category = models.CategoryGeneral
	}

	name := d.AuthorName
	if d.Anonymous {
		name = models.AnonymousName
	}

	return models.Feedback{
		ID:          b.NewID(),
		Text:        d.Text,
		Rating:      d.Rating,
		AuthorName:  name,
		IsAnonymous: d.Anonymous,
		Category:    category,
		Sentiment:   AnalyzeSentiment(d.Text),
		CreatedAt:   b.Now().UTC(),
	}, nil
}
