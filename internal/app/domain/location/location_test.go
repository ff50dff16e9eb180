package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

func TestTrackerWaitsForFirstFix(t *testing.T) {
	tr := NewTracker(nil, nil)
	want := models.Coordinate{Latitude: 37.7749, Longitude: -122.4194}

	go func() {
		time.Sleep(10 * time.Millisecond)
		tr.Update(want)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := tr.CurrentPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	last, at, ok := tr.Last()
	assert.True(t, ok)
	assert.Equal(t, want, last)
	assert.False(t, at.IsZero())
}

func TestTrackerDenied(t *testing.T) {
	seed := models.Coordinate{Latitude: 1, Longitude: 2}
	tr := NewTracker(&seed, nil)
	tr.Deny()

	_, err := tr.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	tr.Grant()
	got, err := tr.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seed, got)
}

func TestTrackerDenyWakesWaiter(t *testing.T) {
	tr := NewTracker(nil, nil)
	errCh := make(chan error, 1)
	go func() {
		_, err := tr.CurrentPosition(context.Background())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	tr.Deny()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, models.ErrPermissionDenied)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Deny")
	}
}

func TestTrackerUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := NewTracker(nil, nil).CurrentPosition(ctx)
	assert.ErrorIs(t, err, models.ErrLocationUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatic(t *testing.T) {
	s := Static{Latitude: 3, Longitude: 4}
	got, err := s.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Coordinate{Latitude: 3, Longitude: 4}, got)
}
