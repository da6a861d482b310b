package relationship

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/trainer-bot/internal/domain"
	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/repository"
	"github.com/Proton-105/trainer-bot/internal/testutil"
	"github.com/Proton-105/trainer-bot/internal/trainer"
)

type fixture struct {
	store    *repository.Store
	svc      *Service
	trainers *trainer.Service
	notifier *testutil.Notifier
	clock    clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := testutil.NewStore(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	notifier := &testutil.Notifier{}
	texts := i18n.MustLoad("ru").Default()

	return &fixture{
		store:    store,
		svc:      NewService(store, notifier, texts, clock, testutil.Logger(), WithRequestMarkup(func(id int64) any { return id })),
		trainers: trainer.NewService(store, clock, testutil.Logger()),
		notifier: notifier,
		clock:    clock,
	}
}

func (f *fixture) trainer(t *testing.T, chatID int64) *domain.Trainer {
	t.Helper()
	tr, _, err := f.trainers.Register(context.Background(), chatID, "Coach")
	require.NoError(t, err)
	return tr
}

func (f *fixture) client(t *testing.T, chatID int64) *domain.Client {
	t.Helper()
	c, _, err := f.svc.RegisterClient(context.Background(), chatID, "Anna")
	require.NoError(t, err)
	return c
}

func (f *fixture) reload(t *testing.T, id int64) *domain.Client {
	t.Helper()
	c, err := f.store.ClientByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func TestRegisterClient_Idempotent(t *testing.T) {
	f := newFixture(t)
	first := f.client(t, 10)
	assert.Equal(t, domain.StatusPending, first.Status)
	assert.Nil(t, first.TrainerID)

	again, created, err := f.svc.RegisterClient(context.Background(), 10, "Other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
}

func TestRequestBinding_ThenApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1)
	c := f.client(t, 10)

	_, err := f.svc.RequestBinding(ctx, 10, tr.ID)
	require.NoError(t, err)

	pending := f.reload(t, c.ID)
	assert.Equal(t, domain.StatusPending, pending.Status)
	require.NotNil(t, pending.TrainerID)
	assert.Equal(t, tr.ID, *pending.TrainerID)

	toTrainer := f.notifier.To(1)
	require.Len(t, toTrainer, 1)
	assert.Contains(t, toTrainer[0].Text, "Anna")
	assert.Equal(t, []any{c.ID}, toTrainer[0].Opts)

	list, err := f.svc.ListPending(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	approved, err := f.svc.Approve(ctx, tr.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	assert.Equal(t, domain.StatusApproved, f.reload(t, c.ID).Status)
	assert.Len(t, f.notifier.To(10), 1)

	_, err = f.svc.Approve(ctx, tr.ID, c.ID)
	require.NoError(t, err)
	assert.Len(t, f.notifier.To(10), 1)
}

func TestRequestBinding_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1)
	other := f.trainer(t, 2)
	f.client(t, 10)

	_, err := f.svc.RequestBinding(ctx, 10, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.RequestBinding(ctx, 11, tr.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.RedeemInviteCode(ctx, 10, tr.InviteCode)
	require.NoError(t, err)

	_, err = f.svc.RequestBinding(ctx, 10, other.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRedeemInviteCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1)
	c := f.client(t, 10)

	_, err := f.svc.RedeemInviteCode(ctx, 10, "ZZZZZZZZ")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	unchanged := f.reload(t, c.ID)
	assert.Equal(t, domain.StatusPending, unchanged.Status)
	assert.Nil(t, unchanged.TrainerID)

	_, err = f.svc.RedeemInviteCode(ctx, 10, "short")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := f.svc.RedeemInviteCode(ctx, 10, " "+strings.ToLower(tr.InviteCode)+" ")
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)

	bound := f.reload(t, c.ID)
	assert.Equal(t, domain.StatusApproved, bound.Status)
	assert.True(t, bound.OwnedBy(tr.ID))
	assert.Len(t, f.notifier.To(1), 1)
}

func TestOwnershipIsEnforced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.trainer(t, 1)
	intruder := f.trainer(t, 2)
	c := f.client(t, 10)
	_, err := f.svc.RequestBinding(ctx, 10, owner.ID)
	require.NoError(t, err)
	f.notifier.Reset()

	_, err = f.svc.Approve(ctx, intruder.ID, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.svc.Reject(ctx, intruder.ID, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.svc.DeleteClient(ctx, intruder.ID, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.svc.ClientCard(ctx, intruder.ID, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	after := f.reload(t, c.ID)
	assert.Equal(t, domain.StatusPending, after.Status)
	assert.True(t, after.OwnedBy(owner.ID))
	assert.Empty(t, f.notifier.Messages())

	_, err = f.svc.Approve(ctx, owner.ID, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReject_ClearsTrainer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1)
	c := f.client(t, 10)
	_, err := f.svc.RequestBinding(ctx, 10, tr.ID)
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, tr.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)

	after := f.reload(t, c.ID)
	assert.Equal(t, domain.StatusRejected, after.Status)
	assert.Nil(t, after.TrainerID)
	assert.Len(t, f.notifier.To(10), 1)

	_, err = f.svc.RequestBinding(ctx, 10, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, f.reload(t, c.ID).Status)
}

func TestLeaveTrainer_KeepsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1)
	c := f.client(t, 10)
	_, err := f.svc.RedeemInviteCode(ctx, 10, tr.InviteCode)
	require.NoError(t, err)

	require.NoError(t, f.store.CreateSession(ctx, &domain.Session{ClientID: c.ID, ScheduledAt: f.clock.Now().Add(-time.Hour)}))
	require.NoError(t, f.store.InsertPayment(ctx, &domain.Payment{ClientID: c.ID, Amount: decimal.NewFromInt(-700), OccurredAt: f.clock.Now()}))
	require.NoError(t, f.store.UpdateClientBalance(ctx, c.ID, decimal.NewFromInt(-700)))
	f.notifier.Reset()

	former, err := f.svc.LeaveTrainer(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, former.ID)

	after := f.reload(t, c.ID)
	assert.Nil(t, after.TrainerID)
	assert.Equal(t, domain.StatusPending, after.Status)
	assert.True(t, after.Balance.Equal(decimal.NewFromInt(-700)))

	sessions, err := f.store.RecentSessions(ctx, c.ID, 10)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Len(t, f.notifier.To(1), 1)

	_, err = f.svc.LeaveTrainer(ctx, 10)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDeleteClient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1)
	c := f.client(t, 10)
	_, err := f.svc.RedeemInviteCode(ctx, 10, tr.InviteCode)
	require.NoError(t, err)
	f.notifier.Fail = map[int64]bool{10: true}

	_, err = f.svc.DeleteClient(ctx, tr.ID, c.ID)
	require.NoError(t, err, "delivery failure must not surface")

	_, err = f.store.ClientByID(ctx, c.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAddClientAndCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1)

	c, err := f.svc.AddClient(ctx, tr.ID, "Boris", "+79990001122", "колено")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, c.Status)
	assert.Nil(t, c.ChatID)

	_, err = f.svc.AddClient(ctx, tr.ID, "", "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	for i := 0; i < 7; i++ {
		require.NoError(t, f.store.CreateSession(ctx, &domain.Session{ClientID: c.ID, ScheduledAt: f.clock.Now().Add(time.Duration(i) * time.Hour)}))
	}

	card, err := f.svc.ClientCard(ctx, tr.ID, c.ID)
	require.NoError(t, err)
	assert.Len(t, card.Sessions, cardHistory)
	assert.Empty(t, card.Payments)

	page, err := f.svc.ListClients(ctx, tr.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestMyProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1)
	c := f.client(t, 10)

	profile, err := f.svc.MyProfile(ctx, 10)
	require.NoError(t, err)
	assert.Nil(t, profile.Trainer)

	_, err = f.svc.RedeemInviteCode(ctx, 10, tr.InviteCode)
	require.NoError(t, err)
	require.NoError(t, f.store.CreateSession(ctx, &domain.Session{ClientID: c.ID, ScheduledAt: f.clock.Now().Add(24 * time.Hour)}))

	profile, err = f.svc.MyProfile(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, profile.Trainer)
	assert.Equal(t, tr.ID, profile.Trainer.ID)
	assert.Len(t, profile.Upcoming, 1)

	_, err = f.svc.MyProfile(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPendingTrainerSeesNoPriorHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.trainer(t, 1)
	second := f.trainer(t, 2)
	c := f.client(t, 10)
	_, err := f.svc.RedeemInviteCode(ctx, 10, first.InviteCode)
	require.NoError(t, err)

	now := f.clock.Now()
	require.NoError(t, f.store.CreateSession(ctx, &domain.Session{ClientID: c.ID, ScheduledAt: now.Add(2 * time.Hour), Comment: "private"}))
	done := &domain.Session{ClientID: c.ID, ScheduledAt: now.Add(-time.Hour)}
	require.NoError(t, f.store.CreateSession(ctx, done))
	require.NoError(t, f.store.CompleteSession(ctx, done.ID))
	require.NoError(t, f.store.InsertPayment(ctx, &domain.Payment{ClientID: c.ID, Amount: decimal.NewFromInt(1000), OccurredAt: now}))
	require.NoError(t, f.store.UpdateClientBalance(ctx, c.ID, decimal.NewFromInt(1000)))

	_, err = f.svc.LeaveTrainer(ctx, 10)
	require.NoError(t, err)
	_, err = f.svc.RequestBinding(ctx, 10, second.ID)
	require.NoError(t, err)

	card, err := f.svc.ClientCard(ctx, second.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, card.Pending)
	assert.Empty(t, card.Sessions)
	assert.Empty(t, card.Payments)
	assert.True(t, card.Client.Balance.IsZero())
	assert.Equal(t, "Anna", card.Client.Name)

	schedule, err := f.store.TrainerSchedule(ctx, second.ID, now.Add(-24*time.Hour), now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, schedule)

	completed, err := f.store.CountCompletedSince(ctx, second.ID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, completed)

	income, err := f.store.IncomeSince(ctx, second.ID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, income.IsZero())

	_, err = f.svc.Approve(ctx, second.ID, c.ID)
	require.NoError(t, err)
	card, err = f.svc.ClientCard(ctx, second.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, card.Pending)
	assert.Len(t, card.Sessions, 2)
	assert.Len(t, card.Payments, 1)
}
