package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/trainer-bot/internal/domain"
	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/repository"
	"github.com/Proton-105/trainer-bot/internal/testutil"
)

var start = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *repository.Store
	svc   *Service
	clock clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	clock := clockwork.NewFakeClockAt(start)
	return &fixture{store: store, svc: NewService(store, clock, time.UTC, testutil.Logger()), clock: clock}
}

func (f *fixture) trainer(t *testing.T, chatID int64, code string) *domain.Trainer {
	t.Helper()
	tr := &domain.Trainer{ChatID: chatID, DisplayName: "Coach", InviteCode: code, CreatedAt: start}
	require.NoError(t, f.store.CreateTrainer(context.Background(), tr))
	return tr
}

func (f *fixture) client(t *testing.T, trainerID int64, name string, status domain.ApprovalStatus) *domain.Client {
	t.Helper()
	c := &domain.Client{Name: name, TrainerID: &trainerID, Status: status, CreatedAt: start}
	require.NoError(t, f.store.CreateClient(context.Background(), c))
	return c
}

func TestRecordPayment_BalanceTracksLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1, "AAAAAAAA")
	c := f.client(t, tr.ID, "Anna", domain.StatusApproved)

	amounts := []string{"3000", "-1200.50", "-2000", "150.25"}
	expected := decimal.Zero
	for _, raw := range amounts {
		amount := decimal.RequireFromString(raw)
		expected = expected.Add(amount)

		res, err := f.svc.RecordPayment(ctx, tr.ID, c.ID, amount, "note")
		require.NoError(t, err)
		assert.True(t, res.Balance.Equal(expected), "balance %s want %s", res.Balance, expected)

		stored, err := f.store.ClientByID(ctx, c.ID)
		require.NoError(t, err)
		sum, err := f.store.SumPayments(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, stored.Balance.Equal(sum), "balance %s != sum %s", stored.Balance, sum)
	}
}

func TestRecordPayment_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1, "AAAAAAAA")
	c := f.client(t, tr.ID, "Anna", domain.StatusApproved)

	_, err := f.svc.RecordPayment(ctx, tr.ID, c.ID, decimal.Zero, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = f.svc.RecordPayment(ctx, tr.ID, c.ID, decimal.RequireFromString("1.005"), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = f.svc.RecordPayment(ctx, tr.ID, 999, decimal.NewFromInt(1), "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLedger_OwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.trainer(t, 1, "AAAAAAAA")
	intruder := f.trainer(t, 2, "BBBBBBBB")
	c := f.client(t, owner.ID, "Anna", domain.StatusApproved)
	pending := f.client(t, owner.ID, "Petr", domain.StatusPending)

	_, err := f.svc.CreateSession(ctx, intruder.ID, c.ID, start.Add(time.Hour), "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.RecordPayment(ctx, intruder.ID, c.ID, decimal.NewFromInt(100), "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.CreateSession(ctx, owner.ID, pending.ID, start.Add(time.Hour), "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	session, err := f.svc.CreateSession(ctx, owner.ID, c.ID, start.Add(time.Hour), "")
	require.NoError(t, err)
	_, err = f.svc.CompleteSession(ctx, intruder.ID, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	stored, err := f.store.ClientByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.IsZero())

	sum, err := f.store.SumPayments(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())

	reloaded, err := f.store.SessionByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPlanned, reloaded.Status)
}

func TestCompleteSession_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1, "AAAAAAAA")
	c := f.client(t, tr.ID, "Anna", domain.StatusApproved)

	session, err := f.svc.CreateSession(ctx, tr.ID, c.ID, start.Add(-time.Hour), " legs ")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPlanned, session.Status)
	assert.Equal(t, "legs", session.Comment)
	assert.False(t, session.Reminder24hSent)

	for i := 0; i < 2; i++ {
		done, err := f.svc.CompleteSession(ctx, tr.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionCompleted, done.Status)
	}

	_, err = f.svc.CompleteSession(ctx, tr.ID, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestParseWhen(t *testing.T) {
	f := newFixture(t)

	when, err := f.svc.ParseWhen("20.10 18:30")
	require.NoError(t, err)
	assert.True(t, when.Equal(time.Date(2026, 10, 20, 18, 30, 0, 0, time.UTC)))

	_, err = f.svc.ParseWhen("not a date")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, 1, "AAAAAAAA")
	anna := f.client(t, tr.ID, "Anna", domain.StatusApproved)
	boris := f.client(t, tr.ID, "Boris", domain.StatusApproved)
	f.client(t, tr.ID, "Vera", domain.StatusApproved)

	_, err := f.svc.RecordPayment(ctx, tr.ID, anna.ID, decimal.NewFromInt(-500), "")
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, tr.ID, boris.ID, decimal.NewFromInt(-1500), "")
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, tr.ID, boris.ID, decimal.NewFromInt(4000), "")
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, tr.ID, anna.ID, decimal.NewFromInt(-100), "")
	require.NoError(t, err)

	debts, err := f.svc.Debts(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assert.Equal(t, anna.ID, debts[0].ID)
	assert.True(t, debts[0].Balance.Equal(decimal.NewFromInt(-600)))

	past, err := f.svc.CreateSession(ctx, tr.ID, anna.ID, start.Add(-48*time.Hour), "")
	require.NoError(t, err)
	_, err = f.svc.CompleteSession(ctx, tr.ID, past.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateSession(ctx, tr.ID, boris.ID, start.Add(72*time.Hour), "")
	require.NoError(t, err)
	_, err = f.svc.CreateSession(ctx, tr.ID, boris.ID, start.Add(40*24*time.Hour), "")
	require.NoError(t, err)

	schedule, err := f.svc.Schedule(ctx, tr.ID, 0)
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	assert.Equal(t, "Boris", schedule[0].ClientName)

	schedule, err = f.svc.Schedule(ctx, tr.ID, 60)
	require.NoError(t, err)
	assert.Len(t, schedule, 2)

	stats, err := f.svc.Stats(ctx, tr.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Days)
	assert.Equal(t, 1, stats.CompletedSessions)
	assert.True(t, stats.Income.Equal(decimal.NewFromInt(4000)))
}
