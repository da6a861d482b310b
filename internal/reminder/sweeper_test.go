package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/trainer-bot/internal/database"
	"github.com/Proton-105/trainer-bot/internal/domain"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/jobs"
	"github.com/Proton-105/trainer-bot/internal/repository"
	"github.com/Proton-105/trainer-bot/internal/testutil"
)

const (
	ownerChat  = int64(100)
	otherChat  = int64(200)
	clientChat = int64(300)
)

var now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *database.DB
	store    *repository.Store
	notifier *testutil.Notifier
	clock    clockwork.FakeClock
	sweeper  *Sweeper
	client   *domain.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := testutil.NewDB(t)
	store := repository.NewStore(db, testutil.Logger())
	clock := clockwork.NewFakeClockAt(now)
	notifier := &testutil.Notifier{}

	owner := &domain.Trainer{ChatID: ownerChat, DisplayName: "Owner", InviteCode: "AAAAAAAA", CreatedAt: now}
	require.NoError(t, store.CreateTrainer(ctx, owner))
	require.NoError(t, store.CreateTrainer(ctx, &domain.Trainer{ChatID: otherChat, DisplayName: "Other", InviteCode: "BBBBBBBB", CreatedAt: now}))

	chat := clientChat
	client := &domain.Client{Name: "Anna", ChatID: &chat, TrainerID: &owner.ID, Status: domain.StatusApproved, CreatedAt: now}
	require.NoError(t, store.CreateClient(ctx, client))

	sweeper := NewSweeper(store, notifier, i18n.MustLoad("ru").Default(), clock,
		Config{Interval: time.Minute, Slack: time.Minute, Location: time.UTC}, testutil.Logger())

	return &fixture{db: db, store: store, notifier: notifier, clock: clock, sweeper: sweeper, client: client}
}

func (f *fixture) session(t *testing.T, at time.Time, comment string) *domain.Session {
	t.Helper()
	s := &domain.Session{ClientID: f.client.ID, ScheduledAt: at, Comment: comment}
	require.NoError(t, f.store.CreateSession(context.Background(), s))
	return s
}

func TestTick_SendsOnceToOwnerAndClient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, now.Add(24*time.Hour+30*time.Second), "ноги")

	require.NoError(t, f.sweeper.Tick(ctx))

	toOwner := f.notifier.To(ownerChat)
	require.Len(t, toOwner, 1)
	assert.Contains(t, toOwner[0].Text, "За 24 часа")
	assert.Contains(t, toOwner[0].Text, "Anna")
	assert.Contains(t, toOwner[0].Text, "20.10.2026 09:00")
	assert.Contains(t, toOwner[0].Text, "ноги")
	require.Len(t, f.notifier.To(clientChat), 1)
	assert.Empty(t, f.notifier.To(otherChat), "only the owning trainer is notified")

	require.NoError(t, f.sweeper.Tick(ctx))
	assert.Len(t, f.notifier.Messages(), 2, "second immediate sweep must not resend")

	f.clock.Advance(time.Minute)
	require.NoError(t, f.sweeper.Tick(ctx))
	assert.Len(t, f.notifier.Messages(), 2)

	reloaded, err := f.store.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Reminder24hSent)
	assert.False(t, reloaded.Reminder2hSent)
}

func TestTick_FlagSetEvenWhenDeliveryFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.Fail = map[int64]bool{ownerChat: true, clientChat: true}
	s := f.session(t, now.Add(2*time.Hour+10*time.Second), "")

	require.NoError(t, f.sweeper.Tick(ctx))
	require.NoError(t, f.sweeper.Tick(ctx))

	assert.Len(t, f.notifier.Messages(), 2, "one attempt per recipient, no retry on later ticks")

	reloaded, err := f.store.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Reminder2hSent)
}

func TestTick_ThresholdsAreIndependent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, now.Add(2*time.Hour+5*time.Second), "")

	require.NoError(t, f.sweeper.Tick(ctx))

	toOwner := f.notifier.To(ownerChat)
	require.Len(t, toOwner, 1)
	assert.Contains(t, toOwner[0].Text, "За 2 часа")

	reloaded, err := f.store.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Reminder24hSent)
	assert.True(t, reloaded.Reminder2hSent)
}

func TestTick_SkipsCompletedAndOutOfWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	done := f.session(t, now.Add(24*time.Hour+10*time.Second), "")
	require.NoError(t, f.store.CompleteSession(ctx, done.ID))
	f.session(t, now.Add(24*time.Hour-time.Second), "")
	f.session(t, now.Add(24*time.Hour+3*time.Minute), "")

	require.NoError(t, f.sweeper.Tick(ctx))
	assert.Empty(t, f.notifier.Messages())
}

func TestTick_UnaffiliatedClientStillReminded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.session(t, now.Add(24*time.Hour+10*time.Second), "")
	require.NoError(t, f.store.UpdateClientBinding(ctx, f.client.ID, nil, domain.StatusPending))

	require.NoError(t, f.sweeper.Tick(ctx))
	assert.Empty(t, f.notifier.To(ownerChat))
	assert.Len(t, f.notifier.To(clientChat), 1)
}

func TestTick_StoreFailureIsReturnedNotPanicked(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Close())

	assert.NotPanics(t, func() {
		assert.Error(t, f.sweeper.Tick(context.Background()))
	})
}

func TestWindow(t *testing.T) {
	f := newFixture(t)
	from, to := f.sweeper.Window(domain.Reminder24h, now)
	assert.Equal(t, now.Add(24*time.Hour), from)
	assert.Equal(t, now.Add(24*time.Hour+2*time.Minute), to)
}

func TestSweepUnderScheduler(t *testing.T) {
	f := newFixture(t)
	f.session(t, now.Add(24*time.Hour+90*time.Second), "")

	scheduler := jobs.NewScheduler(f.clock, testutil.Logger())
	ticked := make(chan struct{}, 10)
	require.NoError(t, scheduler.Every("reminder_sweep", time.Minute, func(ctx context.Context) error {
		defer func() { ticked <- struct{}{} }()
		return f.sweeper.Tick(ctx)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = scheduler.Run(ctx) }()

	for i := 0; i < 3; i++ {
		f.clock.BlockUntil(1)
		f.clock.Advance(time.Minute)
		select {
		case <-ticked:
		case <-time.After(2 * time.Second):
			t.Fatal("sweep did not run")
		}
	}

	assert.Len(t, f.notifier.To(ownerChat), 1)
	assert.Len(t, f.notifier.To(clientChat), 1)
}

func TestDigest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.session(t, now.Add(3*time.Hour), "")
	f.session(t, now.Add(5*time.Hour), "")
	f.session(t, now.Add(30*time.Hour), "")

	require.NoError(t, f.sweeper.Digest(ctx))

	toOwner := f.notifier.To(ownerChat)
	require.Len(t, toOwner, 1)
	assert.Contains(t, toOwner[0].Text, "Тренировок сегодня: 2")
	assert.Contains(t, toOwner[0].Text, "12:00")
	assert.Contains(t, toOwner[0].Text, "14:00")
	assert.Empty(t, f.notifier.To(otherChat))
	assert.Empty(t, f.notifier.To(clientChat))
}

func TestTick_PendingTrainerGetsNoReminderOrDigest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.session(t, now.Add(24*time.Hour+10*time.Second), "private note of the owner")
	f.session(t, now.Add(3*time.Hour), "")

	other, err := f.store.TrainerByChatID(ctx, otherChat)
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateClientBinding(ctx, f.client.ID, &other.ID, domain.StatusPending))

	require.NoError(t, f.sweeper.Tick(ctx))
	require.NoError(t, f.sweeper.Digest(ctx))

	assert.Empty(t, f.notifier.To(otherChat))
	assert.Empty(t, f.notifier.To(ownerChat))
	toClient := f.notifier.To(clientChat)
	require.Len(t, toClient, 1)
	assert.NotContains(t, toClient[0].Text, "private note")
}
