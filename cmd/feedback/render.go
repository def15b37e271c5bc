package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/stats"
	syncpkg "github.com/kimhsiao/feedbacksync/internal/sync"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func sentimentStyle(s models.Sentiment) lipgloss.Style {
	switch s {
	case models.SentimentPositive:
		return passStyle
	case models.SentimentNegative:
		return failStyle
	default:
		return warnStyle
	}
}

func stars(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(labelStyle.UnsetWidth()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderFeedbacks(w io.Writer, records []models.Feedback) {
	if len(records) == 0 {
		fmt.Fprintln(w, warnStyle.Render("No feedback yet."))
		return
	}
	t := newTable("ID", "When", "Rating", "Category", "Sentiment", "Author", "Text")
	for _, r := range records {
		t.Row(
			truncate(r.ID, 8),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			stars(r.Rating),
			string(r.Category),
			sentimentStyle(r.Sentiment).Render(string(r.Sentiment)),
			r.DisplayName(),
			truncate(r.Text, 48),
		)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%d record(s)\n", len(records))
}

func renderStats(w io.Writer, s stats.Stats, records []models.Feedback) {
	line := func(label, value string) string {
		return labelStyle.Render(label) + value
	}
	summary := strings.Join([]string{
		titleStyle.Render("Feedback statistics"),
		line("Total", fmt.Sprint(s.Total)),
		line("Average", fmt.Sprintf("%.1f %s", s.AverageRating, stars(int(s.AverageRating+0.5)))),
		line("Satisfaction", fmt.Sprintf("%d%%", s.SatisfactionRate)),
		line("Positive", passStyle.Render(fmt.Sprint(s.Positive))),
		line("Neutral", warnStyle.Render(fmt.Sprint(s.Neutral))),
		line("Negative", failStyle.Render(fmt.Sprint(s.Negative))),
		line("Anonymous", fmt.Sprint(s.Anonymous)),
	}, "\n")
	fmt.Fprintln(w, boxStyle.Render(summary))

	if records == nil {
		return
	}

	if cats := stats.Categories(records); len(cats) > 0 {
		t := newTable("Category", "Count", "Share", "Average")
		for _, c := range cats {
			t.Row(string(c.Category), fmt.Sprint(c.Count), fmt.Sprintf("%.1f%%", c.Percentage), fmt.Sprintf("%.1f", c.AverageRating))
		}
		fmt.Fprintln(w, t.Render())
	}

	dist := stats.RatingDistribution(records)
	max := 0
	for _, n := range dist {
		if n > max {
			max = n
		}
	}
	fmt.Fprintln(w, titleStyle.Render("Ratings"))
	for star := 5; star >= 1; star-- {
		n := dist[star-1]
		bar := ""
		if max > 0 {
			bar = strings.Repeat("█", n*30/max)
		}
		fmt.Fprintf(w, "%d★ %s %d\n", star, passStyle.Render(bar), n)
	}
}

func renderStatus(w io.Writer, s syncpkg.Status, remoteURL string) {
	state := passStyle.Render("online")
	if !s.Online {
		state = warnStyle.Render("offline")
	}
	last := "never"
	if s.LastSync != nil {
		last = s.LastSync.Local().Format("2006-01-02 15:04:05")
	}
	lines := []string{
		titleStyle.Render("Sync status"),
		labelStyle.Render("Service") + remoteURL,
		labelStyle.Render("State") + state,
		labelStyle.Render("Records") + fmt.Sprint(s.Records),
		labelStyle.Render("Pending") + fmt.Sprint(s.Pending),
		labelStyle.Render("Failed") + fmt.Sprint(s.Failed),
		labelStyle.Render("Last sync") + last,
	}
	if s.LastError != "" {
		lines = append(lines, labelStyle.Render("Last error")+failStyle.Render(s.LastError))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func renderDrain(w io.Writer, r syncpkg.DrainResult) {
	fmt.Fprintf(w, "pushed %d of %d buffered change(s), %d failed, %d remaining\n",
		r.Pushed, r.Attempted, r.Failed, r.Remaining)
}
