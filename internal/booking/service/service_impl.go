package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/slotworks/bookpay/internal/booking/domain"
	"github.com/slotworks/bookpay/internal/clock"
	"github.com/slotworks/bookpay/internal/intent"
	paymentdomain "github.com/slotworks/bookpay/internal/payment/domain"
	userdomain "github.com/slotworks/bookpay/internal/user/domain"
	"github.com/slotworks/bookpay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  bookingdomain.Repository
	Users userdomain.Repository
}

// Service materializes verified payments into booking rows. The stored
// intent metadata is the single source of truth for what gets booked;
// nothing is ever derived from timing heuristics.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  bookingdomain.Repository
	users userdomain.Repository
}

func NewService(p Params) bookingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("booking.materializer"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		users: p.Users,
	}
}

func (s *Service) Materialize(ctx context.Context, payment *paymentdomain.Payment) ([]snowflake.ID, error) {
	if payment == nil || payment.Status != paymentdomain.StatusSuccess {
		return nil, fmt.Errorf("materialize requires a success-status payment")
	}
	if payment.Linked() {
		// A previous run finished; the stored link is authoritative.
		return payment.BookingIDs()
	}

	decoded, err := intent.Decode(payment.RawIntent)
	if err != nil {
		s.log.Error("stored intent metadata is malformed",
			zap.String("reference", payment.Reference),
			zap.Error(err),
		)
		return nil, err
	}

	user, err := s.ensureUser(ctx, decoded.User)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ids := make([]snowflake.ID, 0, len(decoded.Pairs))
	for _, pair := range decoded.Pairs {
		booking, err := s.ensureBooking(ctx, payment, user, decoded, pair, now)
		if err != nil {
			if len(ids) > 0 {
				return ids, &bookingdomain.PartialError{Created: ids, Err: err}
			}
			return nil, err
		}
		ids = append(ids, booking.ID)
	}

	s.log.Info("materialized payment intent",
		zap.String("reference", payment.Reference),
		zap.Int("bookings", len(ids)),
	)
	return ids, nil
}

// ensureUser resolves the payer by email, creating the row on first
// sight. A duplicate-key response means a concurrent materialization won
// the insert; re-read and use theirs.
func (s *Service) ensureUser(ctx context.Context, details intent.UserDetails) (*userdomain.User, error) {
	existing, err := s.users.FindByEmail(ctx, s.db, details.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	user := &userdomain.User{
		ID:         s.genID.Generate(),
		Name:       details.Name,
		Email:      details.Email,
		Phone:      details.Phone,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.Insert(ctx, s.db, user); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		existing, err = s.users.FindByEmail(ctx, s.db, details.Email)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("user for %s vanished after duplicate insert", details.Email)
		}
		return existing, nil
	}
	return user, nil
}

func (s *Service) ensureBooking(
	ctx context.Context,
	payment *paymentdomain.Payment,
	user *userdomain.User,
	decoded intent.BookingIntent,
	pair intent.DateSlot,
	now time.Time,
) (*bookingdomain.Booking, error) {

	existing, err := s.repo.FindActive(ctx, s.db, pair.SlotID, pair.Date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.reuseOrConflict(payment, existing, pair)
	}

	booking := &bookingdomain.Booking{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		SlotID:    pair.SlotID,
		Date:      pair.Date,
		StartTime: decoded.StartTime,
		EndTime:   decoded.EndTime,
		Status:    bookingdomain.StatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, booking); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		existing, err = s.repo.FindActive(ctx, s.db, pair.SlotID, pair.Date)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("booking for %s/%s vanished after duplicate insert", pair.SlotID, pair.Date)
		}
		return s.reuseOrConflict(payment, existing, pair)
	}
	return booking, nil
}

// reuseOrConflict decides whether an existing active booking belongs to
// this payment (an earlier partial run, reusable) or to somebody else
// (business conflict).
func (s *Service) reuseOrConflict(payment *paymentdomain.Payment, existing *bookingdomain.Booking, pair intent.DateSlot) (*bookingdomain.Booking, error) {
	if existing.PaymentReference == "" || existing.PaymentReference == payment.Reference {
		return existing, nil
	}
	return nil, fmt.Errorf("%w: slot %s on %s is held by %s",
		bookingdomain.ErrSlotAlreadyBooked, pair.SlotID, pair.Date, existing.PaymentReference)
}
