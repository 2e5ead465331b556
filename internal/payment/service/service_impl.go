package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	bookingdomain "github.com/slotworks/bookpay/internal/booking/domain"
	"github.com/slotworks/bookpay/internal/clock"
	gatewaydomain "github.com/slotworks/bookpay/internal/gateway/domain"
	"github.com/slotworks/bookpay/internal/intent"
	"github.com/slotworks/bookpay/internal/linker"
	obsmetrics "github.com/slotworks/bookpay/internal/observability/metrics"
	paymentdomain "github.com/slotworks/bookpay/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         paymentdomain.Repository
	Gateway      gatewaydomain.Adapter
	Materializer bookingdomain.Service
	Linker       *linker.Service
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

// Service owns the payment state machine. It is the only writer of
// payments.status; all transitions go through conditional updates keyed on
// the previous status so concurrent verifies cannot clobber each other.
type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         paymentdomain.Repository
	gateway      gatewaydomain.Adapter
	materializer bookingdomain.Service
	linker       *linker.Service
	metrics      *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		gateway:      p.Gateway,
		materializer: p.Materializer,
		linker:       p.Linker,
		metrics:      p.Metrics,
	}
}

func (s *Service) CreateIntent(ctx context.Context, req paymentdomain.CreateIntentRequest) (*paymentdomain.Payment, error) {
	if req.Amount <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, paymentdomain.ErrInvalidCurrency
	}

	// Reject unusable metadata before anything reaches the gateway. The
	// stored payload must replay cleanly during reconciliation.
	decoded, err := intent.Decode(req.RawIntent)
	if err != nil {
		return nil, err
	}
	payer := req.User
	if strings.TrimSpace(payer.Email) == "" {
		payer = decoded.User
	}

	// References are engine-generated, never reused from gateway-issued
	// merchant or account identifiers.
	reference := "pr_" + ulid.Make().String()

	paymentURL, err := s.gateway.CreateIntent(ctx, gatewaydomain.IntentRequest{
		Reference:     reference,
		Amount:        req.Amount,
		Currency:      currency,
		CustomerName:  payer.Name,
		CustomerEmail: payer.Email,
	})
	if err != nil {
		s.log.Warn("gateway rejected intent creation",
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, err
	}

	// Persisted only after the gateway confirmed the intent; a failed
	// gateway call leaves no pending row behind.
	now := s.clock.Now()
	payment := &paymentdomain.Payment{
		ID:         s.genID.Generate(),
		Reference:  reference,
		Amount:     req.Amount,
		Currency:   currency,
		Status:     paymentdomain.StatusPending,
		RawIntent:  datatypes.JSON(req.RawIntent),
		GatewayURL: paymentURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, payment); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsCreated.Inc()
	}
	s.log.Info("payment intent created",
		zap.String("reference", reference),
		zap.Int64("amount", req.Amount),
		zap.String("currency", currency),
		zap.Int("days", len(decoded.Pairs)),
	)
	return payment, nil
}

func (s *Service) Verify(ctx context.Context, reference string) (*paymentdomain.Payment, error) {
	payment, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrUnknownReference
	}
	if payment.Status.Terminal() {
		// Duplicate verify of a settled payment: report the stored state.
		s.countVerification("noop")
		return payment, nil
	}

	code, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		// Transport failure or timeout: the local status stays untouched
		// so a later retry can still land on the real outcome.
		s.countVerification("gateway_unavailable")
		return nil, err
	}

	if !code.Terminal() {
		// Not a failure: the gateway simply has no terminal answer yet.
		s.countVerification("pending")
		return payment, nil
	}

	to := paymentdomain.StatusFailed
	failureReason := string(code)
	if code.Succeeded() {
		to = paymentdomain.StatusSuccess
		failureReason = ""
	}

	applied, err := s.repo.UpdateStatusIf(ctx, s.db, payment.ID, paymentdomain.StatusPending, to, failureReason, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent verify already recorded a terminal result.
		s.countVerification("lost_race")
	} else {
		s.countVerification(string(to))
	}

	stored, err := s.repo.FindByID(ctx, s.db, payment.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, paymentdomain.ErrUnknownReference
	}
	return stored, nil
}

func (s *Service) VerifyAndMaterialize(ctx context.Context, reference string) (paymentdomain.VerifyResult, error) {
	payment, err := s.Verify(ctx, reference)
	if err != nil {
		return paymentdomain.VerifyResult{}, err
	}
	if payment.Status != paymentdomain.StatusSuccess {
		return paymentdomain.VerifyResult{Status: payment.Status}, nil
	}

	if payment.Linked() {
		ids, err := payment.BookingIDs()
		if err != nil {
			return paymentdomain.VerifyResult{Status: payment.Status}, err
		}
		return paymentdomain.VerifyResult{Status: payment.Status, BookingIDs: ids}, nil
	}

	ids, err := s.materializer.Materialize(ctx, payment)
	if err != nil {
		s.countMaterialization(err)
		var partial *bookingdomain.PartialError
		if errors.As(err, &partial) {
			return paymentdomain.VerifyResult{Status: payment.Status, BookingIDs: partial.Created}, err
		}
		return paymentdomain.VerifyResult{Status: payment.Status}, err
	}
	s.countMaterialization(nil)

	if err := s.linker.Link(ctx, payment, ids); err != nil {
		return paymentdomain.VerifyResult{Status: payment.Status, BookingIDs: ids}, err
	}

	return paymentdomain.VerifyResult{Status: payment.Status, BookingIDs: ids}, nil
}

func (s *Service) countVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.Verifications.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countMaterialization(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, intent.ErrMalformed):
		outcome = "malformed_intent"
	case errors.Is(err, bookingdomain.ErrSlotAlreadyBooked):
		outcome = "slot_conflict"
	default:
		outcome = "error"
	}
	s.metrics.Materializations.WithLabelValues(outcome).Inc()
}
