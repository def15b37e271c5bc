package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/logging"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/remote"
	"github.com/kimhsiao/feedbacksync/internal/stats"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// FeedbackHandler serves the feedback collection.
type FeedbackHandler struct {
	repo *Repository
	hub  *Hub
	auth *Authenticator
	now  func() time.Time
}

// NewFeedbackHandler creates a new FeedbackHandler. hub and auth may be nil.
func NewFeedbackHandler(repo *Repository, hub *Hub, auth *Authenticator) *FeedbackHandler {
	return &FeedbackHandler{repo: repo, hub: hub, auth: auth, now: time.Now}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to write response", err, nil)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, remote.ErrorResponse{Success: false, Error: msg})
}

// writeAppError maps a coded error to its HTTP status.
func writeAppError(w http.ResponseWriter, err error) {
	switch errors.CodeOf(err) {
	case errors.ErrValidation, errors.ErrInvalid:
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.ErrNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case errors.ErrUnauthorized:
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		logging.Error("Request failed", err, nil)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *FeedbackHandler) publish(eventType string, data interface{}, count int) {
	if h.hub != nil {
		h.hub.Broadcast(eventType, data, count)
	}
}

// Index handles GET /
func (h *FeedbackHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, remote.IndexResponse{
		Service: "feedbacksync",
		Endpoints: map[string]string{
			"GET /feedbacks":         "List all feedbacks",
			"POST /feedbacks":        "Add a feedback",
			"DELETE /feedbacks/{id}": "Delete a feedback by id",
			"DELETE /feedbacks":      "Clear all feedbacks",
			"GET /stats":             "Feedback statistics",
			"POST /auth/login":       "Obtain a bearer token",
			"GET /ws":                "Change feed (websocket)",
		},
	})
}

// List handles GET /feedbacks
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, remote.ListResponse{
		Success:   true,
		Data:      records,
		Count:     len(records),
		Timestamp: h.now().UTC(),
	})
}

// Create handles POST /feedbacks
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rec models.Feedback
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	stored, created, count, err := h.repo.Add(r.Context(), rec)
	if err != nil {
		writeAppError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		logging.Info("Feedback added", map[string]interface{}{"id": stored.ID, "count": count})
		h.publish(remote.EventFeedbackAdded, stored, count)
	}
	writeJSON(w, status, remote.ItemResponse{Success: true, Data: stored, Count: count})
}

// Delete handles DELETE /feedbacks/{id}
func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	deleted, count, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Feedback not found")
			return
		}
		writeAppError(w, err)
		return
	}

	logging.Info("Feedback deleted", map[string]interface{}{"id": id, "count": count})
	h.publish(remote.EventFeedbackDeleted, map[string]string{"id": id}, count)
	writeJSON(w, http.StatusOK, remote.DeleteResponse{Success: true, Deleted: deleted, Count: count})
}

// Clear handles DELETE /feedbacks
func (h *FeedbackHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.Clear(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}

	logging.Info("Feedbacks cleared", map[string]interface{}{"cleared": n})
	h.publish(remote.EventFeedbackCleared, nil, 0)
	writeJSON(w, http.StatusOK, remote.ClearResponse{Success: true, Cleared: true, Removed: n, Count: 0})
}

// Stats handles GET /stats
func (h *FeedbackHandler) Stats(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.StatsResponse{Success: true, Data: stats.Project(records)})
}

// Login handles POST /auth/login
func (h *FeedbackHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusNotFound, "authentication is disabled")
		return
	}

	var req remote.LoginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, role, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		logging.Warn("Login failed", map[string]interface{}{"username": req.Username})
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.LoginResponse{Success: true, Token: token, Role: role})
}
