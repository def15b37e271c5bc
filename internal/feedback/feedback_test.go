package feedback

import (
	"testing"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/uuid"
)

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		text string
		want models.Sentiment
	}{
		{"this is great and wonderful", models.SentimentPositive},
		{"this is terrible and awful", models.SentimentNegative},
		{"it was fine", models.SentimentNeutral},
		{"", models.SentimentNeutral},
		{"GREAT service but awful coffee", models.SentimentNeutral},
		{"good good good but bad", models.SentimentNeutral}, // each keyword counts once
		{"Love it, perfect, but the queue was annoying", models.SentimentPositive},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := AnalyzeSentiment(tt.text); got != tt.want {
				t.Errorf("AnalyzeSentiment(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		draft   models.Draft
		wantErr bool
	}{
		{"valid named", models.Draft{Text: "nice", Rating: 4, AuthorName: "Rina"}, false},
		{"valid anonymous", models.Draft{Text: "nice", Rating: 1, Anonymous: true}, false},
		{"valid category", models.Draft{Text: "nice", Rating: 5, AuthorName: "a", Category: "Product"}, false},
		{"blank text", models.Draft{Text: "   ", Rating: 3, AuthorName: "a"}, true},
		{"zero rating", models.Draft{Text: "x", Rating: 0, AuthorName: "a"}, true},
		{"rating too high", models.Draft{Text: "x", Rating: 6, AuthorName: "a"}, true},
		{"missing name", models.Draft{Text: "x", Rating: 3, AuthorName: "  "}, true},
		{"unknown category", models.Draft{Text: "x", Rating: 3, AuthorName: "a", Category: "billing"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.draft)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrValidation) {
				t.Errorf("Validate() error code = %v, want VALIDATION_ERROR", errors.CodeOf(err))
			}
		})
	}
}

func TestValidate_messages(t *testing.T) {
	err := Validate(models.Draft{Text: "", Rating: 3, AuthorName: "a"})
	var appErr *errors.AppError
	if e, ok := err.(*errors.AppError); ok {
		appErr = e
	}
	if appErr == nil || appErr.Message != "please enter your feedback" {
		t.Errorf("message = %v", err)
	}
}

func TestBuilder_Build(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	b := &Builder{NewID: uuid.Sequence("fb"), Now: func() time.Time { return now }}

	rec, err := b.Build(models.Draft{Text: "  great app  ", Rating: 5, AuthorName: " Budi "})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if rec.ID != "fb-1" {
		t.Errorf("ID = %q", rec.ID)
	}
	if rec.Text != "great app" || rec.AuthorName != "Budi" {
		t.Errorf("fields not trimmed: %+v", rec)
	}
	if rec.Category != models.CategoryGeneral {
		t.Errorf("Category = %q, want general", rec.Category)
	}
	if rec.Sentiment != models.SentimentPositive {
		t.Errorf("Sentiment = %q", rec.Sentiment)
	}
	if !rec.CreatedAt.Equal(now) || rec.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt = %v", rec.CreatedAt)
	}
}

func TestBuilder_BuildAnonymous(t *testing.T) {
	b := &Builder{NewID: uuid.Sequence("fb"), Now: time.Now}

	rec, err := b.Build(models.Draft{Text: "meh", Rating: 3, AuthorName: "Secret", Anonymous: true, Category: "service"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if rec.AuthorName != models.AnonymousName || !rec.IsAnonymous {
		t.Errorf("anonymous record = %+v", rec)
	}
	if rec.DisplayName() != models.AnonymousName {
		t.Errorf("DisplayName() = %q", rec.DisplayName())
	}
	if rec.Category != models.CategoryService {
		t.Errorf("Category = %q", rec.Category)
	}
}

func TestBuilder_BuildRejectsInvalid(t *testing.T) {
	calls := 0
	b := &Builder{NewID: func() string { calls++; return "x" }, Now: time.Now}

	if _, err := b.Build(models.Draft{Text: "x", Rating: 0, AuthorName: "a"}); err == nil {
		t.Fatal("Build() should reject zero rating")
	}
	if calls != 0 {
		t.Error("no id should be assigned to a rejected draft")
	}
}
