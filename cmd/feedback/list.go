package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/kimhsiao/feedbacksync/internal/models"
)

var timeParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseSince accepts a timestamp, a date, a Go duration counted back from
// now, or a phrase such as "2 days ago" or "last monday".
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}

	r, err := timeParser.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: no date or time recognised", s)
	}
	return r.Time, nil
}

// listFilter narrows a listing.
type listFilter struct {
	Since    time.Time
	Category models.Category
}

func (f listFilter) apply(records []models.Feedback) []models.Feedback {
	out := make([]models.Feedback, 0, len(records))
	for _, r := range records {
		if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
			continue
		}
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		out = append(out, r)
	}
	return out
}

func newListCmd() *cobra.Command {
	var (
		recent   int
		since    string
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List feedback",
		Example: `  feedback list --recent 5
  feedback list --since "2 days ago" --category service
  feedback list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := listFilter{}
			if category != "" {
				c, ok := models.ParseCategory(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				filter.Category = c
			}
			t, err := parseSince(since, time.Now())
			if err != nil {
				return err
			}
			filter.Since = t

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var records []models.Feedback
			if recent > 0 {
				records = filter.apply(a.engine.Recent(len(a.engine.Feedbacks())))
				if len(records) > recent {
					records = records[:recent]
				}
			} else {
				records = filter.apply(a.engine.Feedbacks())
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			renderFeedbacks(cmd.OutOrStdout(), records)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&recent, "recent", 0, "show only the N newest records")
	f.StringVar(&since, "since", "", `only records created after this time ("2 days ago", 2024-05-01, 48h)`)
	f.StringVarP(&category, "category", "c", "", "only records of this category")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
