package linker

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/slotworks/bookpay/internal/booking/domain"
	"github.com/slotworks/bookpay/internal/clock"
	paymentdomain "github.com/slotworks/bookpay/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Payments paymentdomain.Repository
	Bookings bookingdomain.Repository
}

// Service attaches booking ids to their paying payment. The link is set
// exactly once; re-linking the identical set is a no-op and any other set
// is a loud conflict.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	payments paymentdomain.Repository
	bookings bookingdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("linker"),
		clock:    p.Clock,
		payments: p.Payments,
		bookings: p.Bookings,
	}
}

func (s *Service) Link(ctx context.Context, payment *paymentdomain.Payment, bookingIDs []snowflake.ID) error {
	if payment == nil {
		return fmt.Errorf("link requires a payment")
	}
	if len(bookingIDs) == 0 {
		return fmt.Errorf("link requires at least one booking id")
	}

	encoded, err := paymentdomain.MarshalBookingIDs(bookingIDs)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applied, err := s.payments.SetLinkedBookings(ctx, tx, payment.ID, encoded, now)
		if err != nil {
			return err
		}
		if !applied {
			stored, err := s.payments.FindByID(ctx, tx, payment.ID)
			if err != nil {
				return err
			}
			if stored == nil {
				return paymentdomain.ErrUnknownReference
			}
			storedIDs, err := stored.BookingIDs()
			if err != nil {
				return err
			}
			if !paymentdomain.SameBookingIDs(storedIDs, bookingIDs) {
				s.log.Error("refusing to overwrite existing payment link",
					zap.String("reference", payment.Reference),
					zap.Int("existing", len(storedIDs)),
					zap.Int("attempted", len(bookingIDs)),
				)
				return paymentdomain.ErrLinkConflict
			}
			// Identical set: an earlier run already linked; fall through so
			// the booking backfill is (re)applied idempotently.
		}

		// Full payment amount on every booking from the same intent: the
		// payment bought the whole multi-day stay, not one day of it.
		return s.bookings.BackfillPayment(ctx, tx, bookingIDs, payment.Amount, payment.Currency, payment.Reference, now)
	})
}

var Module = fx.Module("linker",
	fx.Provide(NewService),
)
