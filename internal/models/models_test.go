package models

import (
	"encoding/json"
	"testing"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"", CategoryGeneral, true},
		{"service", CategoryService, true},
		{"  Product ", CategoryProduct, true},
		{"SUGGESTION", CategorySuggestion, true},
		{"billing", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCategory(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFeedback_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		f    Feedback
		want string
	}{
		{"named", Feedback{AuthorName: "Ann"}, "Ann"},
		{"anonymous", Feedback{AuthorName: "Ann", IsAnonymous: true}, AnonymousName},
		{"blank", Feedback{AuthorName: "  "}, AnonymousName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestFeedback_Normalize verifies records from older payloads get defaults.
func TestFeedback_Normalize(t *testing.T) {
	var f Feedback
	if err := json.Unmarshal([]byte(`{"id":"x","text":"hi","rating":4,"name":"Bo","isAnonymous":true}`), &f); err != nil {
		t.Fatal(err)
	}
	f.Normalize()

	if f.Category != CategoryGeneral {
		t.Errorf("Category = %q", f.Category)
	}
	if f.Sentiment != SentimentNeutral {
		t.Errorf("Sentiment = %q", f.Sentiment)
	}
	if f.AuthorName != AnonymousName {
		t.Errorf("AuthorName = %q", f.AuthorName)
	}
}

// TestFeedback_wireNames verifies the JSON field names the service uses.
func TestFeedback_wireNames(t *testing.T) {
	b, err := json.Marshal(Feedback{ID: "a", AuthorName: "Ann", IsAnonymous: false})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "text", "rating", "name", "isAnonymous", "category", "sentiment", "timestamp"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing JSON field %q", key)
		}
	}
}

func TestIDsAndClone(t *testing.T) {
	records := []Feedback{{ID: "a"}, {ID: "b"}}
	ids := IDs(records)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs() = %v", ids)
	}

	c := Clone(records)
	c[0].ID = "z"
	if records[0].ID != "a" {
		t.Error("Clone shares storage")
	}
	if Clone(nil) == nil {
		t.Error("Clone(nil) must be non-nil")
	}
}
