// Package reconcile decides whether the remote collection has diverged from
// the one held in memory.
package reconcile

import (
	"sort"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/logging"
	"github.com/kimhsiao/feedbacksync/internal/models"
)

// Strategy defines how divergence is detected.
type Strategy string

const (
	// StrategyIDSet compares the sets of record ids. Catches an
	// add-plus-delete pair that leaves the size unchanged.
	StrategyIDSet Strategy = "id_set"
	// StrategyCount compares collection sizes only.
	StrategyCount Strategy = "count"
	// StrategyContent compares ids and every field of each record.
	StrategyContent Strategy = "content"
)

// ParseStrategy parses a configured strategy name; empty means id_set.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return StrategyIDSet, nil
	case StrategyIDSet, StrategyCount, StrategyContent:
		return Strategy(s), nil
	}
	return "", errors.Newf(errors.ErrConfig, "unknown divergence strategy %q", s)
}

// Divergence describes how remote differs from local.
type Divergence struct {
	// RemoteOnly holds ids present remotely but not locally.
	RemoteOnly []string
	// LocalOnly holds ids present locally but not remotely.
	LocalOnly []string
	// Changed holds ids present on both sides whose content differs
	// (StrategyContent only).
	Changed []string
	// SizeChanged is set when the collections differ in length.
	SizeChanged bool
}

// Empty reports whether no difference was found.
func (d Divergence) Empty() bool {
	return len(d.RemoteOnly) == 0 && len(d.LocalOnly) == 0 && len(d.Changed) == 0 && !d.SizeChanged
}

// Detector compares collections with a fixed strategy.
type Detector struct {
	strategy Strategy
}

// NewDetector creates a Detector; an unknown strategy falls back to id_set.
func NewDetector(strategy Strategy) *Detector {
	if _, err := ParseStrategy(string(strategy)); err != nil || strategy == "" {
		strategy = StrategyIDSet
	}
	return &Detector{strategy: strategy}
}

// Strategy returns the strategy in use.
func (d *Detector) Strategy() Strategy {
	return d.strategy
}

// Diverged reports whether remote should replace local.
func (d *Detector) Diverged(local, remote []models.Feedback) bool {
	div := d.Diff(local, remote)
	if div.Empty() {
		return false
	}
	logging.Debug("Remote collection diverged", map[string]interface{}{
		"strategy":    d.strategy,
		"local":       len(local),
		"remote":      len(remote),
		"remote_only": len(div.RemoteOnly),
		"local_only":  len(div.LocalOnly),
		"changed":     len(div.Changed),
	})
	return true
}

// Diff computes the divergence under the detector's strategy.
func (d *Detector) Diff(local, remote []models.Feedback) Divergence {
	div := Divergence{SizeChanged: len(local) != len(remote)}
	if d.strategy == StrategyCount {
		return div
	}

	localByID := make(map[string]*models.Feedback, len(local))
	for i := range local {
		localByID[local[i].ID] = &local[i]
	}
	remoteIDs := make(map[string]bool, len(remote))
	for i := range remote {
		r := &remote[i]
		remoteIDs[r.ID] = true
		l, ok := localByID[r.ID]
		if !ok {
			div.RemoteOnly = append(div.RemoteOnly, r.ID)
			continue
		}
		if d.strategy == StrategyContent && !sameContent(l, r) {
			div.Changed = append(div.Changed, r.ID)
		}
	}
	for id := range localByID {
		if !remoteIDs[id] {
			div.LocalOnly = append(div.LocalOnly, id)
		}
	}
	sort.Strings(div.LocalOnly)
	return div
}

func sameContent(a, b *models.Feedback) bool {
	return a.Text == b.Text &&
		a.Rating == b.Rating &&
		a.AuthorName == b.AuthorName &&
		a.IsAnonymous == b.IsAnonymous &&
		a.Category == b.Category &&
		a.Sentiment == b.Sentiment &&
		a.CreatedAt.Equal(b.CreatedAt)
}
