package account

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/clausedesk/internal/database"
	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/store"
	"github.com/dukerupert/clausedesk/internal/usage"
	"github.com/dukerupert/clausedesk/internal/websocket"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []websocket.Message
}

func (p *recordingPublisher) SendToUser(_ string, msg websocket.Message) {
	p.mu.Lock()
	p.msgs = append(p.msgs, msg)
	p.mu.Unlock()
}

type testEnv struct {
	svc      *Service
	users    *store.UserStore
	usage    *store.UsageStore
	sessions *store.SessionStore
	tracker  *usage.Tracker
	registry *usage.Registry
	pub      *recordingPublisher
}

func setup(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tracker, err := usage.NewTracker(usage.DefaultLimits())
	require.NoError(t, err)

	env := &testEnv{
		users:    store.NewUserStore(db),
		usage:    store.NewUsageStore(db),
		tracker:  tracker,
		registry: usage.NewRegistry(),
		pub:      &recordingPublisher{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.sessions = store.NewSessionStore(db)
	opts = append([]Option{WithSessionTTL(time.Hour)}, opts...)
	env.svc = NewService(env.users, env.sessions, env.usage, tracker, env.registry,
		nil, env.pub, logger, opts...)
	return env
}

func register(t *testing.T, env *testEnv, email string) *Login {
	t.Helper()
	l, err := env.svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: "Secret123",
		Name:     "Alice",
		Company:  "Acme",
	})
	require.NoError(t, err)
	return l
}

func TestRegisterCreatesFreeSession(t *testing.T) {
	env := setup(t)

	l := register(t, env, "Alice@Example.com")
	assert.Equal(t, "alice@example.com", l.User.Email)
	assert.NotEmpty(t, l.Token)

	snap := l.Session.Snapshot()
	assert.True(t, snap.Authenticated)
	assert.Equal(t, model.TierFree, snap.Tier)
	assert.Same(t, l.Session, env.registry.Get(l.Token))
}

func TestRegisterValidation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, RegisterInput{Email: "bad", Password: "Secret123", Name: "A"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "weak", Name: "A"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	register(t, env, "a@example.com")
	_, err = env.svc.Register(ctx, RegisterInput{Email: "A@example.com", Password: "Secret123", Name: "B"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	env := setup(t)
	register(t, env, "alice@example.com")
	ctx := context.Background()

	_, err := env.svc.Login(ctx, "alice@example.com", "Wrong1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, "nobody@example.com", "Secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	l, err := env.svc.Login(ctx, "ALICE@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", l.User.Email)

	u, err := env.users.GetByID(l.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin)
}

func TestEnsureDemoIsIdempotent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	require.NoError(t, env.svc.EnsureDemo(ctx))
	require.NoError(t, env.svc.EnsureDemo(ctx))

	l, err := env.svc.Login(ctx, DemoEmail, DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, "Demo User", l.User.Name)
}

func TestResolveRehydratesCounters(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := register(t, env, "alice@example.com")

	day := env.tracker.Today()
	require.NoError(t, env.svc.Record(ctx, l.User.ID, usage.ActionReports, day))
	require.NoError(t, env.svc.Record(ctx, l.User.ID, usage.ActionReports, day))

	// Simulate a restart: the live session is gone, the auth row is not.
	env.registry.Delete(l.Token)

	user, sess, err := env.svc.Resolve(ctx, l.Token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, l.User.ID, user.ID)
	assert.Equal(t, 2, sess.Snapshot().Counts[usage.ActionReports])

	ok, err := env.tracker.CheckAndConsume(sess, usage.ActionReports)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.tracker.CheckAndConsume(sess, usage.ActionReports)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveUnknownToken(t *testing.T) {
	env := setup(t)

	user, sess, err := env.svc.Resolve(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Nil(t, sess)

	user, sess, err = env.svc.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Nil(t, sess)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := register(t, env, "alice@example.com")

	require.NoError(t, env.svc.Logout(ctx, l.Token))
	assert.Nil(t, env.registry.Get(l.Token))

	user, _, err := env.svc.Resolve(ctx, l.Token)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUpgradeFansOutToAllSessions(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	first := register(t, env, "alice@example.com")
	second, err := env.svc.Login(ctx, "alice@example.com", "Secret123")
	require.NoError(t, err)

	require.NoError(t, env.svc.Upgrade(ctx, first.User.ID))

	assert.Equal(t, model.TierPaid, first.Session.Snapshot().Tier)
	assert.Equal(t, model.TierPaid, second.Session.Snapshot().Tier)
	assert.Equal(t, model.TierPaid, env.svc.TierFor(ctx, first.User.ID))
	require.Len(t, env.pub.msgs, 1)
	assert.Equal(t, websocket.EventSubscriptionChanged, env.pub.msgs[0].Type)

	require.NoError(t, env.svc.Downgrade(ctx, first.User.ID))
	assert.Equal(t, model.TierFree, second.Session.Snapshot().Tier)
}

func TestTierForFailsSafe(t *testing.T) {
	env := setup(t)
	assert.Equal(t, model.TierFree, env.svc.TierFor(context.Background(), "missing"))
}

func TestLoginAdoptsPaidTier(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := register(t, env, "alice@example.com")
	require.NoError(t, env.users.SetTier(l.User.ID, model.TierPaid))

	l2, err := env.svc.Login(ctx, "alice@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, model.TierPaid, l2.Session.Snapshot().Tier)
}

func TestHistory(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := register(t, env, "alice@example.com")

	require.NoError(t, env.svc.Record(ctx, l.User.ID, usage.ActionQueries, "2026-01-02"))
	days, err := env.svc.History(ctx, l.User.ID, "2026-01-01")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "queries", days[0].Action)
}

func TestLoginsShareOneQuota(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	first := register(t, env, "alice@example.com")
	second, err := env.svc.Login(ctx, "alice@example.com", "Secret123")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)
	assert.Same(t, first.Session, second.Session)

	allowed := 0
	for _, l := range []*Login{first, second} {
		for i := 0; i < 3; i++ {
			ok, err := env.tracker.CheckAndConsume(l.Session, usage.ActionReports)
			require.NoError(t, err)
			if ok {
				allowed++
			}
		}
	}
	assert.Equal(t, 3, allowed, "reports allowed across two logins")

	// A token rebuilt from the store joins the same live session.
	env.registry.Delete(second.Token)
	_, sess, err := env.svc.Resolve(ctx, second.Token)
	require.NoError(t, err)
	assert.Same(t, first.Session, sess)
}

func TestLogoutKeepsOtherDevicesSession(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	first := register(t, env, "alice@example.com")
	second, err := env.svc.Login(ctx, "alice@example.com", "Secret123")
	require.NoError(t, err)

	ok, err := env.tracker.CheckAndConsume(first.Session, usage.ActionGeneration)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, env.svc.Logout(ctx, first.Token))

	user, sess, err := env.svc.Resolve(ctx, second.Token)
	require.NoError(t, err)
	require.NotNil(t, user)
	snap := sess.Snapshot()
	assert.True(t, snap.Authenticated)
	assert.Equal(t, 1, snap.Counts[usage.ActionGeneration])
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	env := setup(t, WithSessionTTL(50*time.Millisecond))
	ctx := context.Background()
	l := register(t, env, "alice@example.com")

	user, _, err := env.svc.Resolve(ctx, l.Token)
	require.NoError(t, err)
	require.NotNil(t, user)

	time.Sleep(100 * time.Millisecond)
	_, err = env.sessions.DeleteExpired()
	require.NoError(t, err)

	user, sess, err := env.svc.Resolve(ctx, l.Token)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Nil(t, sess)
	assert.Nil(t, env.registry.Get(l.Token))
}
