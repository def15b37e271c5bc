package remote

import (
	"encoding/json"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/stats"
)

// Response bodies of the feedback service. Every body carries Success; on
// failure Error holds a human-readable reason.

type ListResponse struct {
	Success   bool              `json:"success"`
	Data      []models.Feedback `json:"data"`
	Count     int               `json:"count"`
	Timestamp time.Time         `json:"timestamp"`
}

type ItemResponse struct {
	Success bool            `json:"success"`
	Data    models.Feedback `json:"data"`
	Count   int             `json:"count"`
}

type DeleteResponse struct {
	Success bool            `json:"success"`
	Deleted models.Feedback `json:"deleted"`
	Count   int             `json:"count"`
}

// ClearResponse answers DELETE /feedbacks. Removed is an extension; other
// services send only success, cleared and count.
type ClearResponse struct {
	Success bool `json:"success"`
	Cleared bool `json:"cleared"`
	Removed int  `json:"removed,omitempty"`
	Count   int  `json:"count"`
}

type StatsResponse struct {
	Success bool        `json:"success"`
	Data    stats.Stats `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Role    string `json:"role"`
}

// IndexResponse is served at GET / and doubles as the liveness probe.
type IndexResponse struct {
	Service   string            `json:"service"`
	Endpoints map[string]string `json:"endpoints"`
}

// Change feed event types.
const (
	EventFeedbackAdded   = "feedback.added"
	EventFeedbackDeleted = "feedback.deleted"
	EventFeedbackCleared = "feedback.cleared"
)

// Event is one message on the change feed.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Count     int             `json:"count"`
	Timestamp int64           `json:"timestamp"`
}
