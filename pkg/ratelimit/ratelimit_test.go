package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(2)

	assert.True(t, l.Allow(ctx, "invite:1"))
	assert.True(t, l.Allow(ctx, "invite:1"))
	assert.False(t, l.Allow(ctx, "invite:1"))

	// keys are independent buckets
	assert.True(t, l.Allow(ctx, "invite:2"))
}

func TestUnlimited(t *testing.T) {
	ctx := context.Background()
	l := Unlimited{}

	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow(ctx, "any"))
	}
}
