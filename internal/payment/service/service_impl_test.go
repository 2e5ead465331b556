package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingrepo "github.com/slotworks/bookpay/internal/booking/repository"
	bookingservice "github.com/slotworks/bookpay/internal/booking/service"
	"github.com/slotworks/bookpay/internal/clock"
	"github.com/slotworks/bookpay/internal/gateway/adapters/sandbox"
	gatewaydomain "github.com/slotworks/bookpay/internal/gateway/domain"
	"github.com/slotworks/bookpay/internal/intent"
	"github.com/slotworks/bookpay/internal/linker"
	paymentdomain "github.com/slotworks/bookpay/internal/payment/domain"
	paymentrepo "github.com/slotworks/bookpay/internal/payment/repository"
	"github.com/slotworks/bookpay/internal/testdb"
	userrepo "github.com/slotworks/bookpay/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	svc     paymentdomain.Service
	conn    *gorm.DB
	gateway *sandbox.Adapter
	clock   *clock.FakeClock
	node    *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testdb.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	fake := clock.NewFakeClock(time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))
	gw := sandbox.New()

	payments := paymentrepo.Provide()
	bookings := bookingrepo.Provide()

	materializer := bookingservice.NewService(bookingservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  bookings,
		Users: userrepo.Provide(),
	})
	link := linker.NewService(linker.Params{
		DB:       conn,
		Log:      log,
		Clock:    fake,
		Payments: payments,
		Bookings: bookings,
	})

	svc := NewService(Params{
		DB:           conn,
		Log:          log,
		GenID:        node,
		Clock:        fake,
		Repo:         payments,
		Gateway:      gw,
		Materializer: materializer,
		Linker:       link,
	})
	return &fixture{svc: svc, conn: conn, gateway: gw, clock: fake, node: node}
}

func bookingIntentJSON(t *testing.T, dates ...string) []byte {
	t.Helper()
	pairs := make([]intent.DateSlot, 0, len(dates))
	for _, d := range dates {
		pairs = append(pairs, intent.DateSlot{Date: d, SlotID: "s1"})
	}
	raw, err := intent.Encode(intent.BookingIntent{
		User:      intent.UserDetails{Name: "Ade", Email: "ade@example.com"},
		Pairs:     pairs,
		StartTime: "18:00",
		EndTime:   "20:00",
	})
	require.NoError(t, err)
	return raw
}

func (f *fixture) createIntent(t *testing.T, amount int64, dates ...string) *paymentdomain.Payment {
	t.Helper()
	payment, err := f.svc.CreateIntent(context.Background(), paymentdomain.CreateIntentRequest{
		Amount:    amount,
		Currency:  "IDR",
		RawIntent: bookingIntentJSON(t, dates...),
	})
	require.NoError(t, err)
	return payment
}

func TestCreateIntentPersistsPending(t *testing.T) {
	f := newFixture(t)

	payment := f.createIntent(t, 14999, "2026-09-10")
	assert.True(t, strings.HasPrefix(payment.Reference, "pr_"))
	assert.Equal(t, paymentdomain.StatusPending, payment.Status)
	assert.NotEmpty(t, payment.GatewayURL)

	stored, err := paymentrepo.Provide().FindByReference(context.Background(), f.conn, payment.Reference)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(14999), stored.Amount)
	assert.Equal(t, "IDR", stored.Currency)
	assert.False(t, stored.Linked())
}

func TestCreateIntentReferencesAreUnique(t *testing.T) {
	f := newFixture(t)
	a := f.createIntent(t, 1000, "2026-09-10")
	b := f.createIntent(t, 1000, "2026-09-11")
	assert.NotEqual(t, a.Reference, b.Reference)
}

func TestCreateIntentGatewayFailureLeavesNoRow(t *testing.T) {
	f := newFixture(t)
	f.gateway.FailCreate(true)

	_, err := f.svc.CreateIntent(context.Background(), paymentdomain.CreateIntentRequest{
		Amount:    14999,
		Currency:  "IDR",
		RawIntent: bookingIntentJSON(t, "2026-09-10"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gatewaydomain.ErrUnavailable))

	var count int64
	require.NoError(t, f.conn.Raw(`SELECT COUNT(*) FROM payments`).Scan(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCreateIntentRejectsMalformedIntent(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateIntent(context.Background(), paymentdomain.CreateIntentRequest{
		Amount:    14999,
		Currency:  "IDR",
		RawIntent: []byte(`{"userDetails": {}}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, intent.ErrMalformed))
}

func TestCreateIntentValidation(t *testing.T) {
	f := newFixture(t)
	raw := bookingIntentJSON(t, "2026-09-10")

	_, err := f.svc.CreateIntent(context.Background(), paymentdomain.CreateIntentRequest{
		Amount: 0, Currency: "IDR", RawIntent: raw,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = f.svc.CreateIntent(context.Background(), paymentdomain.CreateIntentRequest{
		Amount: 100, Currency: "RUPIAH", RawIntent: raw,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidCurrency)
}

func TestVerifyUnknownReference(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Verify(context.Background(), "pr_does_not_exist")
	assert.ErrorIs(t, err, paymentdomain.ErrUnknownReference)
}

func TestVerifyAndMaterializeSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.createIntent(t, 14999, "2026-09-10")
	f.gateway.SetStatus(payment.Reference, gatewaydomain.StatusCaptured)

	result, err := f.svc.VerifyAndMaterialize(ctx, payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusSuccess, result.Status)
	require.Len(t, result.BookingIDs, 1)

	// The booking carries the payment's full amount.
	var amount int64
	require.NoError(t, f.conn.Raw(
		`SELECT amount_paid FROM bookings WHERE id = ?`, result.BookingIDs[0],
	).Scan(&amount).Error)
	assert.Equal(t, int64(14999), amount)

	stored, err := paymentrepo.Provide().FindByReference(ctx, f.conn, payment.Reference)
	require.NoError(t, err)
	assert.True(t, stored.Linked())
}

func TestVerifyAndMaterializeMultiDay(t *testing.T) {
	f := newFixture(t)
	payment := f.createIntent(t, 29998, "2026-09-10", "2026-09-11")
	f.gateway.SetStatus(payment.Reference, gatewaydomain.StatusSettled)

	result, err := f.svc.VerifyAndMaterialize(context.Background(), payment.Reference)
	require.NoError(t, err)
	assert.Len(t, result.BookingIDs, 2)
}

func TestVerifyDuplicateIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.createIntent(t, 14999, "2026-09-10")
	f.gateway.SetStatus(payment.Reference, gatewaydomain.StatusCaptured)

	first, err := f.svc.VerifyAndMaterialize(ctx, payment.Reference)
	require.NoError(t, err)

	second, err := f.svc.VerifyAndMaterialize(ctx, payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, first.BookingIDs, second.BookingIDs)

	var count int64
	require.NoError(t, f.conn.Raw(`SELECT COUNT(*) FROM bookings`).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestVerifyConcurrentCallsMaterializeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.createIntent(t, 14999, "2026-09-10")
	f.gateway.SetStatus(payment.Reference, gatewaydomain.StatusCaptured)

	const callers = 8
	results := make([]paymentdomain.VerifyResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.VerifyAndMaterialize(ctx, payment.Reference)
		}(i)
	}
	wg.Wait()

	// Every caller lands on the same terminal answer; the conditional
	// status update and set-once link make the losers converge on the
	// winner's state instead of forking it.
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, paymentdomain.StatusSuccess, results[i].Status, "caller %d", i)
		assert.Len(t, results[i].BookingIDs, 1, "caller %d", i)
		assert.Equal(t, results[0].BookingIDs, results[i].BookingIDs, "caller %d", i)
	}

	var count int64
	require.NoError(t, f.conn.Raw(`SELECT COUNT(*) FROM bookings`).Scan(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := paymentrepo.Provide().FindByReference(ctx, f.conn, payment.Reference)
	require.NoError(t, err)
	require.True(t, stored.Linked())
	ids, err := stored.BookingIDs()
	require.NoError(t, err)
	assert.Equal(t, results[0].BookingIDs, ids)
}

func TestVerifyNonTerminalStaysPending(t *testing.T) {
	f := newFixture(t)
	payment := f.createIntent(t, 14999, "2026-09-10")
	// Sandbox reports pending until scripted otherwise.

	result, err := f.svc.VerifyAndMaterialize(context.Background(), payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, result.Status)
	assert.Empty(t, result.BookingIDs)
}

func TestVerifyGatewayUnavailableLeavesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.createIntent(t, 14999, "2026-09-10")
	f.gateway.FailVerify(true)

	_, err := f.svc.VerifyAndMaterialize(ctx, payment.Reference)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gatewaydomain.ErrUnavailable))

	stored, err := paymentrepo.Provide().FindByReference(ctx, f.conn, payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, stored.Status)
}

func TestVerifyFailedRecordsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.createIntent(t, 14999, "2026-09-10")
	f.gateway.SetStatus(payment.Reference, gatewaydomain.StatusDeclined)

	result, err := f.svc.VerifyAndMaterialize(ctx, payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, result.Status)
	assert.Empty(t, result.BookingIDs)

	stored, err := paymentrepo.Provide().FindByReference(ctx, f.conn, payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, "declined", stored.FailureReason)

	var count int64
	require.NoError(t, f.conn.Raw(`SELECT COUNT(*) FROM bookings`).Scan(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestVerifyFailedIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.createIntent(t, 14999, "2026-09-10")
	f.gateway.SetStatus(payment.Reference, gatewaydomain.StatusExpired)

	_, err := f.svc.Verify(ctx, payment.Reference)
	require.NoError(t, err)

	// A later gateway success must not resurrect a failed payment.
	f.gateway.SetStatus(payment.Reference, gatewaydomain.StatusCaptured)
	stored, err := f.svc.Verify(ctx, payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, stored.Status)
}

func TestVerifySlotConflictLeavesPaymentUnlinked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.conn.Exec(
		`INSERT INTO bookings (id, user_id, slot_id, date, start_time, end_time, status, payment_reference, created_at, updated_at)
		 VALUES (?, ?, 's1', '2026-09-10', '08:00', '09:00', 'confirmed', 'pr_somebody_else', ?, ?)`,
		f.node.Generate(), f.node.Generate(), time.Now().UTC(), time.Now().UTC(),
	).Error)

	payment := f.createIntent(t, 14999, "2026-09-10")
	f.gateway.SetStatus(payment.Reference, gatewaydomain.StatusCaptured)

	_, err := f.svc.VerifyAndMaterialize(ctx, payment.Reference)
	require.Error(t, err)

	// The payment stays success-but-unlinked: an orphan for the sweep and
	// for operators, never silently resolved.
	stored, err := paymentrepo.Provide().FindByReference(ctx, f.conn, payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusSuccess, stored.Status)
	assert.False(t, stored.Linked())
}
