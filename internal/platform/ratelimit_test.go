package platform

import (
	"testing"
	"time"

	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMarkRateLimited_CooldownRemaining(t *testing.T) {
	p := models.Platform("test-ratelimit-platform")
	assert.Equal(t, time.Duration(0), CooldownRemaining(p))

	MarkRateLimited(p, 50*time.Millisecond)
	assert.Greater(t, CooldownRemaining(p), time.Duration(0))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, time.Duration(0), CooldownRemaining(p))
}

func TestMarkRateLimited_KeepsLongerDeadline(t *testing.T) {
	p := models.Platform("test-ratelimit-platform-2")
	MarkRateLimited(p, 200*time.Millisecond)
	MarkRateLimited(p, 10*time.Millisecond)
	assert.Greater(t, CooldownRemaining(p), 100*time.Millisecond)
}
