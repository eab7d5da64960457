package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

func TestLocationBroker_ResolveBeforeRequest(t *testing.T) {
	b := NewLocationBroker(time.Second)
	id := NewRequestID()

	require.NoError(t, b.Resolve(id, nyc))
	assert.ErrorIs(t, b.Deny(id), domain.ErrLocationRequestAnswered)

	coords, err := b.Requester(id).RequestLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nyc, *coords)
	assert.Zero(t, b.Pending())
}

func TestLocationBroker_ResolveWhileWaiting(t *testing.T) {
	b := NewLocationBroker(time.Second)
	id := NewRequestID()

	done := make(chan *domain.Coordinates, 1)
	go func() {
		coords, _ := b.Requester(id).RequestLocation(context.Background())
		done <- coords
	}()

	require.Eventually(t, func() bool { return b.Pending() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, b.Resolve(id, nycNear))

	select {
	case coords := <-done:
		require.NotNil(t, coords)
		assert.Equal(t, nycNear, *coords)
	case <-time.After(time.Second):
		t.Fatal("requester did not receive the answer")
	}
}

func TestLocationBroker_Deny(t *testing.T) {
	b := NewLocationBroker(time.Second)
	id := NewRequestID()
	require.NoError(t, b.Deny(id))

	_, err := b.Requester(id).RequestLocation(context.Background())
	assert.ErrorIs(t, err, domain.ErrLocationDenied)
}

func TestLocationBroker_Timeout(t *testing.T) {
	b := NewLocationBroker(20 * time.Millisecond)

	_, err := b.Requester(NewRequestID()).RequestLocation(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, b.Pending())
}

func TestLocationBroker_EmptyID(t *testing.T) {
	b := NewLocationBroker(time.Second)

	assert.ErrorIs(t, b.Resolve("", nyc), domain.ErrLocationRequestNotFound)
	_, err := b.Requester("").RequestLocation(context.Background())
	assert.ErrorIs(t, err, domain.ErrLocationRequestNotFound)
}

func TestLocationBroker_ValidateWithLocation(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1", Venue: &nyc, Geofence: domain.Geofence{Enabled: true, RadiusMeters: 690}})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	cred := f.issue(t, "alice", "t-1", &nyc)

	b := NewLocationBroker(time.Second)
	id := NewRequestID()
	require.NoError(t, b.Resolve(id, nycNear))

	d, err := f.admission.ValidateWithLocation(context.Background(),
		&domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"}, b.Requester(id))
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryGranted, d.Category)
}
