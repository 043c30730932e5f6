package platform

import (
	"fmt"
	"sync"

	"github.com/jmylchreest/tvarr/internal/models"
)

// ClientFactory creates and manages platform clients, mirroring an
// ingestor.HandlerFactory-style registry pattern.
type ClientFactory struct {
	mu      sync.RWMutex
	clients map[models.Platform]Client
}

// NewClientFactory creates an empty factory. Callers register platform
// clients with Register; cmd/bsrecorder wires the four built-in clients.
func NewClientFactory() *ClientFactory {
	return &ClientFactory{
		clients: make(map[models.Platform]Client),
	}
}

// Register adds a client to the factory, keyed by its own Platform().
func (f *ClientFactory) Register(client Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[client.Platform()] = client
}

// Get returns the client registered for platform.
func (f *ClientFactory) Get(platform models.Platform) (Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	client, ok := f.clients[platform]
	if !ok {
		return nil, fmt.Errorf("no client registered for platform: %s", platform)
	}
	return client, nil
}

// SupportedPlatforms returns all registered platform tags.
func (f *ClientFactory) SupportedPlatforms() []models.Platform {
	f.mu.RLock()
	defer f.mu.RUnlock()

	platforms := make([]models.Platform, 0, len(f.clients))
	for p := range f.clients {
		platforms = append(platforms, p)
	}
	return platforms
}
