package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/models"
)

func ids(list ...string) []models.Feedback {
	out := make([]models.Feedback, len(list))
	for i, id := range list {
		out[i] = models.Feedback{ID: id, Text: "t", Rating: 3, CreatedAt: time.Unix(0, 0)}
	}
	return out
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyIDSet, s)

	s, err = ParseStrategy("count")
	require.NoError(t, err)
	assert.Equal(t, StrategyCount, s)

	_, err = ParseStrategy("hash")
	assert.True(t, errors.Is(err, errors.ErrConfig))
}

func TestNewDetector_fallback(t *testing.T) {
	assert.Equal(t, StrategyIDSet, NewDetector("bogus").Strategy())
	assert.Equal(t, StrategyContent, NewDetector(StrategyContent).Strategy())
}

func TestDetector_Diverged(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		local    []models.Feedback
		remote   []models.Feedback
		want     bool
	}{
		{"identical", StrategyIDSet, ids("a", "b"), ids("b", "a"), false},
		{"both empty", StrategyIDSet, nil, ids(), false},
		{"remote grew", StrategyIDSet, ids("a"), ids("a", "b"), true},
		{"same size swapped id", StrategyIDSet, ids("a", "b"), ids("a", "c"), true},
		{"count misses swap", StrategyCount, ids("a", "b"), ids("a", "c"), false},
		{"count sees growth", StrategyCount, ids("a"), ids("a", "b"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDetector(tt.strategy).Diverged(tt.local, tt.remote)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetector_Diff(t *testing.T) {
	d := NewDetector(StrategyIDSet)
	div := d.Diff(ids("a", "b", "c"), ids("c", "d", "a"))

	assert.Equal(t, []string{"d"}, div.RemoteOnly)
	assert.Equal(t, []string{"b"}, div.LocalOnly)
	assert.Empty(t, div.Changed)
	assert.False(t, div.SizeChanged)
	assert.False(t, div.Empty())
}

func TestDetector_Content(t *testing.T) {
	local := ids("a", "b")
	remote := ids("a", "b")
	remote[1].Rating = 5

	assert.False(t, NewDetector(StrategyIDSet).Diverged(local, remote))

	div := NewDetector(StrategyContent).Diff(local, remote)
	assert.Equal(t, []string{"b"}, div.Changed)
	assert.True(t, NewDetector(StrategyContent).Diverged(local, remote))
}
