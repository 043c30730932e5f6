// Package danmaku implements the per-platform chat/danmaku state machine:
// one Provider per platform, each producing a lazy, finite,
// non-restartable sequence of DanmuMessage that ends when the upstream
// closes or Stop is called.
package danmaku

import (
	"context"

	"github.com/jmylchreest/tvarr/internal/models"
)

// State is the coarse danmaku session state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateAuthed     State = "authed"
	StateStreaming  State = "streaming"
	StateClosed     State = "closed"
	StateFailed     State = "failed"
)

// Provider is the uniform contract every platform's danmaku transport
// implements.
type Provider interface {
	// Platform returns the tag this provider serves.
	Platform() models.Platform

	// Start connects and performs the handshake, transitioning
	// Idle->Connecting->Authed->Streaming, or Failed on handshake error.
	Start(ctx context.Context) error

	// Recv blocks for the next chat message, or returns (nil, false) once
	// the session has closed (upstream close, Stop, or HeartbeatTimeout).
	Recv(ctx context.Context) (*models.DanmuMessage, bool)

	// Stop is idempotent and wakes both halves within <=200ms.
	Stop()

	// State returns the current session state.
	State() State
}

// Registry holds one Provider constructor per platform that supports
// danmaku (globalshort is intentionally absent).
type Registry struct {
	factories map[models.Platform]func(models.Account, string) Provider
}

// NewRegistry creates an empty registry; cmd/bsrecorder wires the three
// built-in constructors.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[models.Platform]func(models.Account, string) Provider)}
}

// Register adds a constructor for platform.
func (r *Registry) Register(platform models.Platform, factory func(account models.Account, roomID string) Provider) {
	r.factories[platform] = factory
}

// New creates a Provider for platform/roomID, or nil if the platform has no
// danmaku provider (e.g. globalshort).
func (r *Registry) New(platform models.Platform, account models.Account, roomID string) Provider {
	factory, ok := r.factories[platform]
	if !ok {
		return nil
	}
	return factory(account, roomID)
}
