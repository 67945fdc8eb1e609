package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
)

type lockEnv struct {
	locks    *fakeLockStore
	versions *fakeVersionStore
	users    *fakeUserStore
	svc      *LockService
	clock    int64
}

func newLockEnv(t *testing.T) *lockEnv {
	t.Helper()
	env := &lockEnv{
		locks:    newFakeLockStore(),
		versions: newFakeVersionStore(newFakeDocumentStore()),
		users:    newFakeUserStore(),
		clock:    1000,
	}
	env.svc = NewLockService(env.locks, env.versions, env.users, 30*time.Minute, 120*time.Minute)
	env.svc.now = func() int64 { return env.clock }

	require.NoError(t, env.users.Create(context.Background(), &model.User{ID: "alice", Username: "alice"}))
	require.NoError(t, env.users.Create(context.Background(), &model.User{ID: "bob", Username: "bob"}))
	require.NoError(t, env.versions.Create(context.Background(), &model.DocumentVersion{
		ID: "v1", DocumentID: "d1", Major: 0, Minor: 1, Status: model.StatusDraft,
	}))
	return env
}

func TestLockAcquireAndStatus(t *testing.T) {
	env := newLockEnv(t)

	lock, err := env.svc.Acquire(context.Background(), "v1", "alice", "sess-1", 0)
	require.NoError(t, err)
	require.NotEmpty(t, lock.Token)
	require.Equal(t, env.clock+1800, lock.ExpiresAt)

	status, err := env.svc.Status(context.Background(), "v1", "alice")
	require.NoError(t, err)
	require.True(t, status.Locked)
	require.True(t, status.IsMine)
	require.Equal(t, "alice", status.HolderID)
	require.Equal(t, "alice", status.HolderName)

	status, err = env.svc.Status(context.Background(), "v1", "bob")
	require.NoError(t, err)
	require.True(t, status.Locked)
	require.False(t, status.IsMine)
}

func TestLockAcquireConflict(t *testing.T) {
	env := newLockEnv(t)

	_, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 0)
	require.NoError(t, err)

	_, err = env.svc.Acquire(context.Background(), "v1", "bob", "", 0)
	require.ErrorIs(t, err, appErr.ErrAlreadyLocked)
	var lockErr *appErr.AlreadyLockedError
	require.ErrorAs(t, err, &lockErr)
	require.Equal(t, "alice", lockErr.HolderID)
	require.Equal(t, "alice", lockErr.HolderName)
}

func TestLockAcquireReentrantRotatesToken(t *testing.T) {
	env := newLockEnv(t)

	first, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 0)
	require.NoError(t, err)

	env.clock += 60
	second, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 0)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)
	require.Equal(t, env.clock+1800, second.ExpiresAt)

	// Old token is dead after rotation.
	_, err = env.svc.Heartbeat(context.Background(), "v1", first.Token, 0)
	require.ErrorIs(t, err, appErr.ErrTokenMismatch)
}

func TestLockAcquireNonDraft(t *testing.T) {
	env := newLockEnv(t)
	require.NoError(t, env.versions.Create(context.Background(), &model.DocumentVersion{
		ID: "v2", DocumentID: "d1", Major: 1, Minor: 0, Status: model.StatusPublished,
	}))

	_, err := env.svc.Acquire(context.Background(), "v2", "alice", "", 0)
	require.ErrorIs(t, err, appErr.ErrInvalidState)
}

func TestLockExpiryIsLazy(t *testing.T) {
	env := newLockEnv(t)

	_, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 10*time.Minute)
	require.NoError(t, err)

	// One second past expiry: bob can take the lock without any sweeper
	// having run.
	env.clock += 601
	lock, err := env.svc.Acquire(context.Background(), "v1", "bob", "", 0)
	require.NoError(t, err)
	require.Equal(t, "bob", lock.UserID)
}

func TestLockTTLClamped(t *testing.T) {
	env := newLockEnv(t)

	lock, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, env.clock+int64((120*time.Minute).Seconds()), lock.ExpiresAt)
}

func TestHeartbeatExtendsActiveLock(t *testing.T) {
	env := newLockEnv(t)

	lock, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 0)
	require.NoError(t, err)

	env.clock += 300
	expiresAt, err := env.svc.Heartbeat(context.Background(), "v1", lock.Token, 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, env.clock+1800, expiresAt)
}

func TestHeartbeatAfterExpiryFails(t *testing.T) {
	env := newLockEnv(t)

	lock, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 10*time.Minute)
	require.NoError(t, err)

	env.clock += 601
	_, err = env.svc.Heartbeat(context.Background(), "v1", lock.Token, 0)
	require.ErrorIs(t, err, appErr.ErrLockExpired)
}

func TestHeartbeatWrongToken(t *testing.T) {
	env := newLockEnv(t)

	_, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 0)
	require.NoError(t, err)

	_, err = env.svc.Heartbeat(context.Background(), "v1", "bogus", 0)
	require.ErrorIs(t, err, appErr.ErrTokenMismatch)
}

func TestHeartbeatExpiredLockStaleToken(t *testing.T) {
	env := newLockEnv(t)

	_, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 10*time.Minute)
	require.NoError(t, err)

	// Once the lease lapses it reads as absent; expiry wins over whatever
	// token the caller presents.
	env.clock += 601
	_, err = env.svc.Heartbeat(context.Background(), "v1", "bogus", 0)
	require.ErrorIs(t, err, appErr.ErrLockExpired)
}

func TestReleaseIsIdempotent(t *testing.T) {
	env := newLockEnv(t)

	lock, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 0)
	require.NoError(t, err)

	require.NoError(t, env.svc.Release(context.Background(), "v1", lock.Token))
	// Second release of the same token: no lock row, still fine.
	require.NoError(t, env.svc.Release(context.Background(), "v1", lock.Token))
}

func TestReleaseWrongTokenOnActiveLock(t *testing.T) {
	env := newLockEnv(t)

	_, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 0)
	require.NoError(t, err)

	err = env.svc.Release(context.Background(), "v1", "bogus")
	require.ErrorIs(t, err, appErr.ErrTokenMismatch)
}

func TestReleaseExpiredLockSucceeds(t *testing.T) {
	env := newLockEnv(t)

	_, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 10*time.Minute)
	require.NoError(t, err)

	env.clock += 601
	require.NoError(t, env.svc.Release(context.Background(), "v1", "whatever"))
}

func TestStatusOnExpiredLockReportsUnlocked(t *testing.T) {
	env := newLockEnv(t)

	_, err := env.svc.Acquire(context.Background(), "v1", "alice", "", 10*time.Minute)
	require.NoError(t, err)

	env.clock += 601
	status, err := env.svc.Status(context.Background(), "v1", "bob")
	require.NoError(t, err)
	require.False(t, status.Locked)

	// The read must not have mutated the row; the sweep still finds it.
	deleted, err := env.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	env := newLockEnv(t)

	const goroutines = 16
	results := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		user := "alice"
		if i%2 == 1 {
			user = "bob"
		}
		go func(user string) {
			_, err := env.svc.Acquire(context.Background(), "v1", user, "", 0)
			results <- err
		}(user)
	}

	var failures int
	for i := 0; i < goroutines; i++ {
		if err := <-results; err != nil {
			require.True(t, errors.Is(err, appErr.ErrAlreadyLocked))
			failures++
		}
	}
	// At least one acquire must have succeeded, and the lock ends held by
	// exactly one user.
	require.Less(t, failures, goroutines)
	lock, err := env.locks.GetByVersion(context.Background(), "v1")
	require.NoError(t, err)
	require.Contains(t, []string{"alice", "bob"}, lock.UserID)
}
