package surrealdb

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestWriteBackOff_SpacesRetries(t *testing.T) {
	b := writeBackOff(context.Background())

	assert.Equal(t, 25*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 50*time.Millisecond, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff(), "two retries after the first attempt")
}

func TestWriteBackOff_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, backoff.Stop, writeBackOff(ctx).NextBackOff())
}
