package authgate_test

import (
	"context"
	"testing"
	"time"

	authgate "github.com/goliatone/go-authgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSession(userID string, confirmed bool) *authgate.SessionObject {
	now := time.Now()
	exp := now.Add(time.Hour)
	return &authgate.SessionObject{
		UserID:         userID,
		Email:          userID + "@example.com",
		IssuedAt:       &now,
		ExpirationDate: &exp,
		EmailConfirmed: confirmed,
	}
}

func TestAggregator_StartsLoading(t *testing.T) {
	identity := &FakeIdentityClient{}
	profiles := &MockProfileStore{}

	agg := authgate.NewAggregator(identity, profiles)

	assert.True(t, agg.Snapshot().IsLoading)
}

func TestAggregator_ResolvesSignedOut(t *testing.T) {
	identity := &FakeIdentityClient{}
	profiles := &MockProfileStore{}

	agg := authgate.NewAggregator(identity, profiles)
	require.NoError(t, agg.Start(context.Background()))
	defer agg.Stop()

	snap := agg.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.IsAuthenticated)
	assert.Equal(t, authgate.RoleNone, snap.Role)
}

func TestAggregator_ResolvesProfileOnSignIn(t *testing.T) {
	identity := &FakeIdentityClient{}
	profiles := &MockProfileStore{}
	profiles.On("GetProfile", mock.Anything, "user-1").Return(&authgate.Profile{
		Role:                authgate.RoleAdmin,
		OnboardingCompleted: true,
	}, nil)

	agg := authgate.NewAggregator(identity, profiles)
	require.NoError(t, agg.Start(context.Background()))
	defer agg.Stop()

	identity.Emit(authgate.SessionSignedIn, testSession("user-1", true))

	snap := agg.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.True(t, snap.IsEmailConfirmed)
	assert.True(t, snap.IsOnboardingCompleted)
	assert.Equal(t, authgate.RoleAdmin, snap.Role)
	assert.Equal(t, "user-1", snap.UserID)
	profiles.AssertExpectations(t)
}

func TestAggregator_ProfileFailureDegradesNotBlocks(t *testing.T) {
	identity := &FakeIdentityClient{}
	profiles := &MockProfileStore{}
	profiles.On("GetProfile", mock.Anything, "user-1").
		Return(nil, assert.AnError)

	agg := authgate.NewAggregator(identity, profiles)
	require.NoError(t, agg.Start(context.Background()))
	defer agg.Stop()

	identity.Emit(authgate.SessionSignedIn, testSession("user-1", true))

	// authenticated survives; profile-derived facts fail closed
	snap := agg.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, authgate.RoleNone, snap.Role)
	assert.False(t, snap.IsOnboardingCompleted)
}

func TestAggregator_MissingProfileIsNotAnError(t *testing.T) {
	identity := &FakeIdentityClient{}
	profiles := &MockProfileStore{}
	profiles.On("GetProfile", mock.Anything, "user-1").Return(nil, nil)

	agg := authgate.NewAggregator(identity, profiles)
	require.NoError(t, agg.Start(context.Background()))
	defer agg.Stop()

	identity.Emit(authgate.SessionSignedIn, testSession("user-1", false))

	snap := agg.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, authgate.RoleNone, snap.Role)
}

func TestAggregator_SignOutClearsEverything(t *testing.T) {
	identity := &FakeIdentityClient{}
	profiles := &MockProfileStore{}
	profiles.On("GetProfile", mock.Anything, "user-1").Return(&authgate.Profile{
		Role:                authgate.RoleUser,
		OnboardingCompleted: true,
	}, nil)

	agg := authgate.NewAggregator(identity, profiles)
	require.NoError(t, agg.Start(context.Background()))
	defer agg.Stop()

	identity.Emit(authgate.SessionSignedIn, testSession("user-1", true))
	identity.Emit(authgate.SessionSignedOut, nil)

	snap := agg.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.IsEmailConfirmed)
	assert.False(t, snap.IsOnboardingCompleted)
	assert.Equal(t, authgate.RoleNone, snap.Role)
	assert.Empty(t, snap.UserID)
}

func TestAggregator_SubscribeReceivesCurrentAndUpdates(t *testing.T) {
	identity := &FakeIdentityClient{}
	profiles := &MockProfileStore{}
	profiles.On("GetProfile", mock.Anything, mock.Anything).Return(nil, nil)

	agg := authgate.NewAggregator(identity, profiles)
	require.NoError(t, agg.Start(context.Background()))
	defer agg.Stop()

	var seen []authgate.Snapshot
	unsub := agg.Subscribe(func(s authgate.Snapshot) {
		seen = append(seen, s)
	})

	identity.Emit(authgate.SessionSignedIn, testSession("user-1", true))

	require.GreaterOrEqual(t, len(seen), 2)
	assert.False(t, seen[0].IsAuthenticated)
	assert.True(t, seen[len(seen)-1].IsAuthenticated)

	unsub()
	count := len(seen)
	identity.Emit(authgate.SessionSignedOut, nil)
	assert.Len(t, seen, count)

	// second unsubscribe is a no-op
	unsub()
}

func TestAggregator_SnapshotIsAtomic(t *testing.T) {
	identity := &FakeIdentityClient{}
	profiles := &MockProfileStore{}
	profiles.On("GetProfile", mock.Anything, "user-1").Return(&authgate.Profile{
		Role: authgate.RoleAdmin,
	}, nil)
	profiles.On("GetProfile", mock.Anything, "user-2").Return(&authgate.Profile{
		Role: authgate.RoleUser,
	}, nil)

	agg := authgate.NewAggregator(identity, profiles)
	require.NoError(t, agg.Start(context.Background()))
	defer agg.Stop()

	identity.Emit(authgate.SessionSignedIn, testSession("user-1", true))
	identity.Emit(authgate.SessionSignedIn, testSession("user-2", true))

	// the published snapshot never pairs user-2 with user-1's role
	snap := agg.Snapshot()
	assert.Equal(t, "user-2", snap.UserID)
	assert.Equal(t, authgate.RoleUser, snap.Role)
}

func TestAggregator_DiscardsStaleProfileResponse(t *testing.T) {
	identity := &FakeIdentityClient{}

	fetchingA := make(chan struct{})
	releaseA := make(chan struct{})

	profiles := &MockProfileStore{}
	profiles.On("GetProfile", mock.Anything, "user-a").Run(func(mock.Arguments) {
		close(fetchingA)
		<-releaseA
	}).Return(&authgate.Profile{Role: authgate.RoleAdmin, OnboardingCompleted: true}, nil)
	profiles.On("GetProfile", mock.Anything, "user-b").Return(&authgate.Profile{
		Role: authgate.RoleUser,
	}, nil)

	agg := authgate.NewAggregator(identity, profiles)
	require.NoError(t, agg.Start(context.Background()))
	defer agg.Stop()

	// user-a's profile fetch hangs in flight while user-b signs in and
	// fully resolves; user-a's late response must not overwrite user-b
	doneA := make(chan struct{})
	go func() {
		identity.Emit(authgate.SessionSignedIn, testSession("user-a", true))
		close(doneA)
	}()

	<-fetchingA
	identity.Emit(authgate.SessionSignedIn, testSession("user-b", true))

	snap := agg.Snapshot()
	assert.Equal(t, "user-b", snap.UserID)
	assert.Equal(t, authgate.RoleUser, snap.Role)

	close(releaseA)
	<-doneA

	snap = agg.Snapshot()
	assert.Equal(t, "user-b", snap.UserID)
	assert.Equal(t, authgate.RoleUser, snap.Role)
	assert.False(t, snap.IsOnboardingCompleted)
}

func TestAggregator_RefreshRereadsProfile(t *testing.T) {
	identity := &FakeIdentityClient{}
	profiles := &MockProfileStore{}
	profiles.On("GetProfile", mock.Anything, "user-1").Return(&authgate.Profile{
		Role:                authgate.RoleUser,
		OnboardingCompleted: false,
	}, nil).Once()
	profiles.On("GetProfile", mock.Anything, "user-1").Return(&authgate.Profile{
		Role:                authgate.RoleUser,
		OnboardingCompleted: true,
	}, nil).Once()

	agg := authgate.NewAggregator(identity, profiles)
	require.NoError(t, agg.Start(context.Background()))
	defer agg.Stop()

	identity.Emit(authgate.SessionSignedIn, testSession("user-1", true))
	require.False(t, agg.Snapshot().IsOnboardingCompleted)

	agg.Refresh(context.Background())
	assert.True(t, agg.Snapshot().IsOnboardingCompleted)
}
