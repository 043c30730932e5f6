package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/tvarr/internal/eventbus"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/jmylchreest/tvarr/internal/recordermanager"
)

// RecorderHandler exposes the Recorder Manager's verbs over HTTP.
type RecorderHandler struct {
	manager           *recordermanager.Manager
	heartbeatInterval time.Duration
}

// NewRecorderHandler creates a handler fronting manager.
func NewRecorderHandler(manager *recordermanager.Manager) *RecorderHandler {
	return &RecorderHandler{
		manager:           manager,
		heartbeatInterval: 30 * time.Second,
	}
}

// SetHeartbeatInterval overrides the SSE heartbeat interval (for testing).
func (h *RecorderHandler) SetHeartbeatInterval(interval time.Duration) {
	h.heartbeatInterval = interval
}

// RecorderResponse is the wire shape for a recorded room's current state.
type RecorderResponse struct {
	Platform      string    `json:"platform"`
	RoomID        string    `json:"room_id"`
	State         string    `json:"state"`
	Enabled       bool      `json:"enabled"`
	LiveID        int64     `json:"live_id,omitempty"`
	IsRecording   bool      `json:"is_recording"`
	TotalDuration float64   `json:"total_duration,omitempty"`
	TotalSize     int64     `json:"total_size,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func recorderResponseFromInfo(info models.RecorderInfo) RecorderResponse {
	return RecorderResponse{
		Platform:      string(info.Platform),
		RoomID:        info.RoomID,
		State:         string(info.State),
		Enabled:       info.Enabled,
		LiveID:        info.LiveID,
		IsRecording:   info.IsRecording,
		TotalDuration: info.TotalDuration,
		TotalSize:     info.TotalSize,
		UpdatedAt:     info.UpdatedAt,
	}
}

// ListRecordersOutput is the Huma output for listing recorders.
type ListRecordersOutput struct {
	Body struct {
		Recorders []RecorderResponse `json:"recorders"`
	}
}

// ListRecorders returns every room the manager currently owns.
func (h *RecorderHandler) ListRecorders(ctx context.Context, input *struct{}) (*ListRecordersOutput, error) {
	out := &ListRecordersOutput{}
	for _, info := range h.manager.List() {
		out.Body.Recorders = append(out.Body.Recorders, recorderResponseFromInfo(info))
	}
	return out, nil
}

// AddRecorderInput is the Huma input for adding a room.
type AddRecorderInput struct {
	Body struct {
		Platform  string `json:"platform" doc:"Platform tag (mainstream, gaming, shortlive, globalshort)"`
		RoomID    string `json:"room_id"`
		AccountID string `json:"account_id" doc:"ULID of the account to record with"`
	}
}

// AddRecorderOutput is the Huma output for adding a room.
type AddRecorderOutput struct {
	Body struct {
		ID string `json:"id"`
	}
}

// AddRecorder registers a new room with the manager.
func (h *RecorderHandler) AddRecorder(ctx context.Context, input *AddRecorderInput) (*AddRecorderOutput, error) {
	accountID, err := models.ParseULID(input.Body.AccountID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid account_id", err)
	}

	row, err := h.manager.Add(ctx, models.Platform(input.Body.Platform), input.Body.RoomID, accountID)
	if err != nil {
		if err == recordermanager.ErrAlreadyExists {
			return nil, huma.Error409Conflict("recorder already exists for this room")
		}
		if err == recordermanager.ErrAccountNotFound {
			return nil, huma.Error404NotFound("account not found")
		}
		return nil, huma.Error500InternalServerError("adding recorder", err)
	}

	out := &AddRecorderOutput{}
	out.Body.ID = row.ID.String()
	return out, nil
}

// RoomPathInput identifies a room via path parameters, shared by
// remove/enable/disable.
type RoomPathInput struct {
	Platform string `path:"platform"`
	RoomID   string `path:"room_id"`
}

// RoomActionOutput confirms a room mutation.
type RoomActionOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

// RemoveRecorder stops and forgets a room.
func (h *RecorderHandler) RemoveRecorder(ctx context.Context, input *RoomPathInput) (*RoomActionOutput, error) {
	if err := h.manager.Remove(ctx, models.Platform(input.Platform), input.RoomID); err != nil {
		if err == recordermanager.ErrNotFound {
			return nil, huma.Error404NotFound("recorder not found")
		}
		return nil, huma.Error500InternalServerError("removing recorder", err)
	}
	out := &RoomActionOutput{}
	out.Body.Message = "removed"
	return out, nil
}

// SetEnabledInput identifies a room and the desired enabled state.
type SetEnabledInput struct {
	Platform string `path:"platform"`
	RoomID   string `path:"room_id"`
}

// EnableRecorder re-enables a previously disabled room.
func (h *RecorderHandler) EnableRecorder(ctx context.Context, input *SetEnabledInput) (*RoomActionOutput, error) {
	return h.setEnabled(ctx, input, true)
}

// DisableRecorder disables a room without removing it.
func (h *RecorderHandler) DisableRecorder(ctx context.Context, input *SetEnabledInput) (*RoomActionOutput, error) {
	return h.setEnabled(ctx, input, false)
}

func (h *RecorderHandler) setEnabled(ctx context.Context, input *SetEnabledInput, enabled bool) (*RoomActionOutput, error) {
	if err := h.manager.SetEnabled(ctx, models.Platform(input.Platform), input.RoomID, enabled); err != nil {
		if err == recordermanager.ErrNotFound {
			return nil, huma.Error404NotFound("recorder not found")
		}
		return nil, huma.Error500InternalServerError("updating recorder", err)
	}
	out := &RoomActionOutput{}
	out.Body.Message = "updated"
	return out, nil
}

// Register registers the recorder REST routes with the API.
func (h *RecorderHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listRecorders",
		Method:      "GET",
		Path:        "/api/v1/recorders",
		Summary:     "List recorders",
		Tags:        []string{"Recorders"},
	}, h.ListRecorders)

	huma.Register(api, huma.Operation{
		OperationID: "addRecorder",
		Method:      "POST",
		Path:        "/api/v1/recorders",
		Summary:     "Add a recorder",
		Tags:        []string{"Recorders"},
	}, h.AddRecorder)

	huma.Register(api, huma.Operation{
		OperationID: "removeRecorder",
		Method:      "DELETE",
		Path:        "/api/v1/recorders/{platform}/{room_id}",
		Summary:     "Remove a recorder",
		Tags:        []string{"Recorders"},
	}, h.RemoveRecorder)

	huma.Register(api, huma.Operation{
		OperationID: "enableRecorder",
		Method:      "POST",
		Path:        "/api/v1/recorders/{platform}/{room_id}/enable",
		Summary:     "Enable a recorder",
		Tags:        []string{"Recorders"},
	}, h.EnableRecorder)

	huma.Register(api, huma.Operation{
		OperationID: "disableRecorder",
		Method:      "POST",
		Path:        "/api/v1/recorders/{platform}/{room_id}/disable",
		Summary:     "Disable a recorder",
		Tags:        []string{"Recorders"},
	}, h.DisableRecorder)
}

// RegisterSSE registers the lifecycle event stream on a chi router. Huma has
// no native SSE support, so this is wired directly against the router
// alongside Register, following the same split used for progress events.
func (h *RecorderHandler) RegisterSSE(router interface {
	Get(pattern string, handlerFn http.HandlerFunc)
}) {
	router.Get("/api/v1/recorders/events", h.handleSSEEvents)
}

func (h *RecorderHandler) handleSSEEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := h.manager.Subscribe()
	defer h.manager.Unsubscribe(sub)

	rc := http.NewResponseController(w)

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()

	fmt.Fprint(w, ":connected\n\n")
	if err := rc.Flush(); err != nil {
		slog.Error("failed to flush initial SSE connection", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ":heartbeat %d\n\n", time.Now().Unix())
			if err := rc.Flush(); err != nil {
				slog.Debug("heartbeat flush failed, client likely disconnected", "error", err)
				return
			}
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := h.writeSSEEvent(w, event); err != nil {
				slog.Error("failed to write SSE event", "error", err)
				return
			}
			if err := rc.Flush(); err != nil {
				slog.Debug("event flush failed, client likely disconnected", "error", err)
				return
			}
		}
	}
}

func (h *RecorderHandler) writeSSEEvent(w http.ResponseWriter, event eventbus.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
