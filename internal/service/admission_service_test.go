package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

var (
	nyc     = domain.Coordinates{Latitude: 40.7128, Longitude: -74.0060}
	nycNear = domain.Coordinates{Latitude: 40.7130, Longitude: -74.0062}
	// about 1000 m north of nyc
	nycFar = domain.Coordinates{Latitude: 40.7218, Longitude: -74.0060}
)

func validate(t *testing.T, f *fixture, attempt *domain.ValidationAttempt) *domain.Decision {
	t.Helper()
	d, err := f.admission.Validate(context.Background(), attempt)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func TestAdmissionService_SingleUse(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1", ReentryType: domain.ReentrySingleUse})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	cred := f.issue(t, "alice", "t-1", nil)

	first := validate(t, f, &domain.ValidationAttempt{Credential: cred.ScanPayload(), ValidatorID: "owner"})
	assert.Equal(t, domain.CategoryGranted, first.Category)
	assert.True(t, first.Valid)
	assert.Equal(t, domain.RoleOwner, first.ValidatorRole)
	require.NotNil(t, first.Ticket)
	assert.Equal(t, 1, first.Ticket.UseCount)
	assert.True(t, first.Ticket.IsValidated)

	second := validate(t, f, &domain.ValidationAttempt{Credential: cred.ScanPayload(), ValidatorID: "owner"})
	assert.Equal(t, domain.CategoryAlreadyValidated, second.Category)
	assert.False(t, second.Valid)
	assert.True(t, second.AlreadyValidated)
	assert.Equal(t, 1, f.ticket(t, "t-1").UseCount)
	assert.Len(t, f.outbox.Messages(), 1)
}

func TestAdmissionService_Pass(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1", ReentryType: domain.ReentryPass, MaxUses: 3})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice", MaxUses: 3})
	cred := f.issue(t, "alice", "t-1", nil)

	for want := 1; want <= 3; want++ {
		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"})
		require.Equal(t, domain.CategoryGranted, d.Category)
		assert.Equal(t, want, d.Ticket.UseCount)
	}

	d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"})
	assert.Equal(t, domain.CategoryMaxUsesReached, d.Category)
	assert.True(t, d.AlreadyValidated)
	assert.Equal(t, 3, f.ticket(t, "t-1").UseCount)
}

func TestAdmissionService_Unlimited(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1", ReentryType: domain.ReentryUnlimited})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	cred := f.issue(t, "alice", "t-1", nil)

	for i := 0; i < 5; i++ {
		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"})
		require.Equal(t, domain.CategoryGranted, d.Category)
	}
	tk := f.ticket(t, "t-1")
	assert.Equal(t, 5, tk.UseCount)
	require.NotNil(t, tk.ValidatedAt)
	assert.True(t, tk.ValidatedAt.Equal(f.now))
}

func TestAdmissionService_Authorization(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1", ReentryType: domain.ReentryUnlimited, P2PValidation: true})
	f.addEvent(t, &domain.Event{ID: "e-2"})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	f.addTicket(t, &domain.Ticket{ID: "t-peer", EventID: "e-1", OwnerID: "bob"})
	f.addTicket(t, &domain.Ticket{ID: "t-other", EventID: "e-2", OwnerID: "carol"})
	require.NoError(t, f.events.AddDelegate(context.Background(), &domain.Delegate{EventID: "e-1", UserID: "staff"}))
	cred := f.issue(t, "alice", "t-1", nil)

	tests := []struct {
		name      string
		validator string
		category  domain.Category
		role      domain.ValidatorRole
	}{
		{name: "owner", validator: "owner", category: domain.CategoryGranted, role: domain.RoleOwner},
		{name: "delegate", validator: "staff", category: domain.CategoryGranted, role: domain.RoleDelegate},
		{name: "peer holder", validator: "bob", category: domain.CategoryGranted, role: domain.RolePeer},
		{name: "self as peer", validator: "alice", category: domain.CategoryUnauthorized, role: domain.RoleNone},
		{name: "holder of another event", validator: "carol", category: domain.CategoryUnauthorized, role: domain.RoleNone},
		{name: "anonymous", validator: "", category: domain.CategoryUnauthorized, role: domain.RoleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: tt.validator})
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.role, d.ValidatorRole)
			assert.Equal(t, tt.category == domain.CategoryGranted, d.CanValidate)
			assert.True(t, d.IsAuthentic)
			if tt.category == domain.CategoryUnauthorized {
				assert.Nil(t, d.Ticket, "unauthorized validators see no ticket details")
			}
		})
	}
}

func TestAdmissionService_ConcurrentPeers(t *testing.T) {
	const peers = 12

	tests := []struct {
		name    string
		reentry domain.ReentryType
		maxUses int
		refusal domain.Category
	}{
		{name: "single use", reentry: domain.ReentrySingleUse, maxUses: 1, refusal: domain.CategoryAlreadyValidated},
		{name: "pass", reentry: domain.ReentryPass, maxUses: 3, refusal: domain.CategoryMaxUsesReached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addEvent(t, &domain.Event{ID: "e-1", ReentryType: tt.reentry, MaxUses: tt.maxUses, P2PValidation: true})
			f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice", MaxUses: tt.maxUses})
			for i := 0; i < peers; i++ {
				f.addTicket(t, &domain.Ticket{ID: fmt.Sprintf("t-peer-%d", i), EventID: "e-1", OwnerID: fmt.Sprintf("peer-%d", i), MaxUses: tt.maxUses})
			}
			cred := f.issue(t, "alice", "t-1", nil)

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				outcomes = make(map[domain.Category]int)
			)
			start := make(chan struct{})
			for i := 0; i < peers; i++ {
				wg.Add(1)
				go func(validator string) {
					defer wg.Done()
					<-start
					d, err := f.admission.Validate(context.Background(), &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: validator})
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, domain.RolePeer, d.ValidatorRole)
					mu.Lock()
					outcomes[d.Category]++
					mu.Unlock()
				}(fmt.Sprintf("peer-%d", i))
			}
			close(start)
			wg.Wait()

			assert.Equal(t, tt.maxUses, outcomes[domain.CategoryGranted])
			assert.Equal(t, peers-tt.maxUses, outcomes[tt.refusal])
			assert.Len(t, outcomes, 2, "every attempt is granted or refused: %v", outcomes)
			assert.Equal(t, tt.maxUses, f.ticket(t, "t-1").UseCount)
			assert.Len(t, f.outbox.Messages(), tt.maxUses)
		})
	}
}

func TestAdmissionService_PeerRequiresP2P(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1"})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	f.addTicket(t, &domain.Ticket{ID: "t-peer", EventID: "e-1", OwnerID: "bob"})
	cred := f.issue(t, "alice", "t-1", nil)

	d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "bob"})
	assert.Equal(t, domain.CategoryUnauthorized, d.Category)
	assert.Zero(t, f.ticket(t, "t-1").UseCount)
}

func TestAdmissionService_CredentialChecks(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1"})
	f.addEvent(t, &domain.Event{ID: "e-2"})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	cred := f.issue(t, "alice", "t-1", nil)

	t.Run("unknown code", func(t *testing.T) {
		d := validate(t, f, &domain.ValidationAttempt{Credential: "9999", ValidatorID: "owner"})
		assert.Equal(t, domain.CategoryInvalidCode, d.Category)
		assert.False(t, d.IsAuthentic)
		assert.False(t, d.CanValidate)
	})

	t.Run("wrong event gate", func(t *testing.T) {
		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner", EventID: "e-2"})
		assert.Equal(t, domain.CategoryInvalidCode, d.Category)
		assert.False(t, d.IsAuthentic)
	})

	t.Run("expired", func(t *testing.T) {
		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner", At: cred.ExpiresAt.Add(time.Second)})
		assert.Equal(t, domain.CategoryExpiredCode, d.Category)
	})

	t.Run("nil attempt", func(t *testing.T) {
		d := validate(t, f, nil)
		assert.Equal(t, domain.CategoryInvalidCode, d.Category)
	})

	assert.Zero(t, f.ticket(t, "t-1").UseCount)
}

func TestAdmissionService_ValidationWindow(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1", StartsAt: f.now.Add(90 * time.Minute), EarlyValidation: domain.EarlyValidationTwoHoursBefore})
	f.addEvent(t, &domain.Event{ID: "e-2", StartsAt: f.now.Add(90 * time.Minute), EarlyValidation: domain.EarlyValidationOneHourBefore})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	f.addTicket(t, &domain.Ticket{ID: "t-2", EventID: "e-2", OwnerID: "alice"})
	open := f.issue(t, "alice", "t-1", nil)
	closed := f.issue(t, "alice", "t-2", nil)

	d := validate(t, f, &domain.ValidationAttempt{Credential: open.PIN, ValidatorID: "owner"})
	assert.Equal(t, domain.CategoryGranted, d.Category)

	d = validate(t, f, &domain.ValidationAttempt{Credential: closed.PIN, ValidatorID: "owner"})
	assert.Equal(t, domain.CategoryOutsideValidTime, d.Category)
	assert.True(t, d.OutsideValidTime)
	assert.Zero(t, f.ticket(t, "t-2").UseCount)
}

func TestAdmissionService_Geofence(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{
		ID:       "e-1",
		Venue:    &nyc,
		Geofence: domain.Geofence{Enabled: true, RadiusMeters: 690},
	})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})

	t.Run("validator too far", func(t *testing.T) {
		cred := f.issue(t, "alice", "t-1", &nycNear)
		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner", ValidatorLocation: &nycFar})
		assert.Equal(t, domain.CategoryOutsideGeofence, d.Category)
		assert.True(t, d.OutsideGeofence)
		require.NotNil(t, d.ValidatorDistance)
		assert.InDelta(t, 1000, *d.ValidatorDistance, 5)
		assert.Zero(t, f.ticket(t, "t-1").UseCount)
	})

	t.Run("holder too far", func(t *testing.T) {
		cred := f.issue(t, "alice", "t-1", &nycFar)
		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner", ValidatorLocation: &nycNear})
		assert.Equal(t, domain.CategoryOutsideGeofence, d.Category)
	})

	t.Run("missing validator location", func(t *testing.T) {
		cred := f.issue(t, "alice", "t-1", &nycNear)
		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"})
		assert.Equal(t, domain.CategoryLocationRequired, d.Category)
		assert.True(t, d.RequiresLocation)
	})

	t.Run("missing holder location", func(t *testing.T) {
		cred := f.issue(t, "alice", "t-1", nil)
		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner", ValidatorLocation: &nycNear})
		assert.Equal(t, domain.CategoryLocationRequired, d.Category)
	})

	t.Run("both inside", func(t *testing.T) {
		cred := f.issue(t, "alice", "t-1", nil)
		d := validate(t, f, &domain.ValidationAttempt{
			Credential:        cred.PIN,
			ValidatorID:       "owner",
			ValidatorLocation: &nycNear,
			HolderLocation:    &nyc,
		})
		assert.Equal(t, domain.CategoryGranted, d.Category)
		require.NotNil(t, d.HolderDistance)
		assert.InDelta(t, 0, *d.HolderDistance, 0.001)
	})
}

func TestAdmissionService_GeofenceWithoutVenueIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1", Geofence: domain.Geofence{Enabled: true}})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	cred := f.issue(t, "alice", "t-1", nil)

	d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"})
	assert.Equal(t, domain.CategoryGranted, d.Category)
}

func TestAdmissionService_DefaultRadius(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1", Venue: &nyc, Geofence: domain.Geofence{Enabled: true}})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	// about 445 m away: outside the 300 m default
	mid := domain.Coordinates{Latitude: 40.7168, Longitude: -74.0060}
	cred := f.issue(t, "alice", "t-1", &nyc)

	d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner", ValidatorLocation: &mid})
	assert.Equal(t, domain.CategoryOutsideGeofence, d.Category)
}

func TestAdmissionService_Effects(t *testing.T) {
	christmas := time.Date(2026, 12, 25, 21, 0, 0, 0, time.UTC)

	t.Run("disabled effects never draw", func(t *testing.T) {
		f := newFixture(t, 0)
		f.now = christmas
		f.addEvent(t, &domain.Event{ID: "e-1", Name: "Holiday Show", SpecialEffectsEnabled: false})
		f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
		cred := f.issue(t, "alice", "t-1", nil)

		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"})
		assert.Equal(t, domain.CategoryGranted, d.Category)
		assert.Nil(t, d.AssignedEffect)
		assert.Nil(t, f.ticket(t, "t-1").SpecialEffect)
		assert.Zero(t, f.rng.Calls())
	})

	t.Run("winning draw on the matched rule", func(t *testing.T) {
		f := newFixture(t, 0.01)
		f.now = christmas
		f.addEvent(t, &domain.Event{ID: "e-1", Name: "Holiday Show", SpecialEffectsEnabled: true, ReentryType: domain.ReentryUnlimited})
		f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
		cred := f.issue(t, "alice", "t-1", nil)

		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"})
		require.NotNil(t, d.AssignedEffect)
		assert.Equal(t, domain.EffectSnowflakes, d.AssignedEffect.Type)
		assert.Equal(t, domain.EffectSnowflakes, d.Ticket.SpecialEffect.Type)

		again := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"})
		assert.Nil(t, again.AssignedEffect, "effects are drawn on the first grant only")
		assert.Equal(t, domain.EffectSnowflakes, again.Ticket.SpecialEffect.Type)
		assert.Equal(t, 1, f.rng.Calls())
	})

	t.Run("losing draw has no fallthrough", func(t *testing.T) {
		f := newFixture(t, 0.5)
		f.now = christmas
		f.addEvent(t, &domain.Event{ID: "e-1", Name: "Holiday Show", SpecialEffectsEnabled: true})
		f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
		cred := f.issue(t, "alice", "t-1", nil)

		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"})
		assert.Equal(t, domain.CategoryGranted, d.Category)
		assert.Nil(t, d.AssignedEffect)
		assert.Equal(t, 1, f.rng.Calls())
	})

	t.Run("golden ticket", func(t *testing.T) {
		p := 0.2
		f := newFixture(t, 0.1)
		f.addEvent(t, &domain.Event{ID: "e-1", GoldenTicketEnabled: true, GoldenTicketProbability: &p})
		f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
		cred := f.issue(t, "alice", "t-1", nil)

		d := validate(t, f, &domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"})
		assert.True(t, d.IsGoldenTicket)
		assert.True(t, f.ticket(t, "t-1").IsGoldenTicket)
	})
}

func TestAdmissionService_ValidateWithLocation(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *domain.Credential) {
		f := newFixture(t)
		f.addEvent(t, &domain.Event{ID: "e-1", Venue: &nyc, Geofence: domain.Geofence{Enabled: true, RadiusMeters: 690}})
		f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
		return f, f.issue(t, "alice", "t-1", &nycNear)
	}

	tests := []struct {
		name      string
		requester LocationRequesterFunc
		category  domain.Category
		useCount  int
	}{
		{
			name: "resolved inside",
			requester: func(context.Context) (*domain.Coordinates, error) {
				return &nycNear, nil
			},
			category: domain.CategoryGranted,
			useCount: 1,
		},
		{
			name: "resolved outside",
			requester: func(context.Context) (*domain.Coordinates, error) {
				return &nycFar, nil
			},
			category: domain.CategoryOutsideGeofence,
		},
		{
			name: "denied",
			requester: func(context.Context) (*domain.Coordinates, error) {
				return nil, domain.ErrLocationDenied
			},
			category: domain.CategoryLocationDenied,
		},
		{
			name: "timed out",
			requester: func(context.Context) (*domain.Coordinates, error) {
				return nil, context.DeadlineExceeded
			},
			category: domain.CategoryLocationDenied,
		},
		{
			name: "invalid coordinates",
			requester: func(context.Context) (*domain.Coordinates, error) {
				return &domain.Coordinates{Latitude: 200}, nil
			},
			category: domain.CategoryLocationDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, cred := setup(t)

			d, err := f.admission.ValidateWithLocation(context.Background(),
				&domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"}, tt.requester)
			require.NoError(t, err)
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.useCount, f.ticket(t, "t-1").UseCount)
		})
	}
}

func TestAdmissionService_ValidateWithLocationSkipsRequest(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1"})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	cred := f.issue(t, "alice", "t-1", nil)

	called := false
	requester := LocationRequesterFunc(func(context.Context) (*domain.Coordinates, error) {
		called = true
		return nil, nil
	})

	d, err := f.admission.ValidateWithLocation(context.Background(),
		&domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"}, requester)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryGranted, d.Category)
	assert.False(t, called)
}

func TestAdmissionService_ValidateWithLocationBrokerError(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, &domain.Event{ID: "e-1", Venue: &nyc, Geofence: domain.Geofence{Enabled: true}})
	f.addTicket(t, &domain.Ticket{ID: "t-1", EventID: "e-1", OwnerID: "alice"})
	cred := f.issue(t, "alice", "t-1", &nyc)

	requester := LocationRequesterFunc(func(context.Context) (*domain.Coordinates, error) {
		return nil, errors.New("device channel closed")
	})

	_, err := f.admission.ValidateWithLocation(context.Background(),
		&domain.ValidationAttempt{Credential: cred.PIN, ValidatorID: "owner"}, requester)
	assert.Error(t, err)
}
