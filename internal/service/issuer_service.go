package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/carvdstudio/carvd-licensing/internal/domain/issuance"
	"github.com/carvdstudio/carvd-licensing/internal/ierr"
	"github.com/carvdstudio/carvd-licensing/internal/licensekey"
	"github.com/carvdstudio/carvd-licensing/internal/metrics"
	"github.com/carvdstudio/carvd-licensing/internal/webhook"
	"go.uber.org/zap"
)

// DeliveryTracker reports whether a webhook order has been seen before.
type DeliveryTracker interface {
	MarkSeen(ctx context.Context, orderID string) bool
}

// IssueOutcome is what a processed webhook delivery produced. Issued is
// false for acknowledged-but-ignored event types.
type IssueOutcome struct {
	Issued     bool
	LicenseKey string
	Email      string
	OrderID    string
	EventName  string
}

// IssuerService converts authenticated purchase events into signed
// license keys. Issuance itself is stateless: re-delivery of the same
// event mints a fresh, functionally identical key. The audit record and
// duplicate marker are written best effort and never block the response.
type IssuerService struct {
	signer        *licensekey.Signer
	webhookSecret string
	repo          issuance.Repository
	deliveries    DeliveryTracker
	logger        *zap.Logger
}

func NewIssuerService(
	signer *licensekey.Signer,
	webhookSecret string,
	repo issuance.Repository,
	deliveries DeliveryTracker,
	logger *zap.Logger,
) *IssuerService {
	return &IssuerService{
		signer:        signer,
		webhookSecret: webhookSecret,
		repo:          repo,
		deliveries:    deliveries,
		logger:        logger.Named("IssuerService"),
	}
}

// HandleEvent authenticates and processes one raw webhook delivery.
// Error classes map to the response codes the payment platform sees:
// ierr.ErrWebhookSignature (401), ierr.ErrValidation (400),
// ierr.ErrSigningKeyAbsent (500).
func (s *IssuerService) HandleEvent(ctx context.Context, body []byte, signature string) (*IssueOutcome, error) {
	if s.webhookSecret == "" || signature == "" {
		s.logger.Warn("Webhook rejected: missing shared secret or signature header")
		metrics.WebhookEvents.WithLabelValues(metrics.ResultBadSignature).Inc()
		return nil, ierr.ErrWebhookSignature
	}

	if !webhook.VerifySignature(s.webhookSecret, body, signature) {
		s.logger.Warn("Webhook rejected: signature mismatch")
		metrics.WebhookEvents.WithLabelValues(metrics.ResultBadSignature).Inc()
		return nil, ierr.ErrWebhookSignature
	}

	ev, err := webhook.ParseEvent(body)
	if err != nil {
		s.logger.Warn("Webhook rejected: unparseable payload", zap.Error(err))
		metrics.WebhookEvents.WithLabelValues(metrics.ResultBadPayload).Inc()
		return nil, fmt.Errorf("%w: %v", ierr.ErrValidation, err)
	}

	if ev.Meta.EventName != webhook.EventOrderCreated {
		s.logger.Info("Ignoring webhook event of irrelevant type",
			zap.String("event_name", ev.Meta.EventName))
		metrics.WebhookEvents.WithLabelValues(metrics.ResultIgnored).Inc()
		return &IssueOutcome{Issued: false, EventName: ev.Meta.EventName}, nil
	}

	email := ev.Data.Attributes.UserEmail
	orderID := ev.Data.Attributes.Identifier
	if email == "" || orderID == "" {
		s.logger.Warn("Webhook rejected: purchase attributes missing",
			zap.String("event_name", ev.Meta.EventName),
			zap.String("order_id", orderID))
		metrics.WebhookEvents.WithLabelValues(metrics.ResultBadPayload).Inc()
		return nil, fmt.Errorf("%w: user_email and identifier are required", ierr.ErrValidation)
	}

	if s.signer == nil {
		s.logger.Error("Cannot issue license: signing key not configured",
			zap.String("order_id", orderID),
			zap.String("event_name", ev.Meta.EventName))
		metrics.WebhookEvents.WithLabelValues(metrics.ResultError).Inc()
		return nil, ierr.ErrSigningKeyAbsent
	}

	key, err := s.signer.Sign(email, orderID, nil)
	if err != nil {
		s.logger.Error("Failed to sign license key",
			zap.String("order_id", orderID), zap.Error(err))
		metrics.WebhookEvents.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	if s.deliveries != nil && !s.deliveries.MarkSeen(ctx, orderID) {
		s.logger.Info("Duplicate webhook delivery, minting functionally identical key",
			zap.String("order_id", orderID))
		metrics.DuplicateDeliveries.Inc()
	}

	s.recordIssuance(ev, key)

	metrics.WebhookEvents.WithLabelValues(metrics.ResultIssued).Inc()
	metrics.LicensesIssued.WithLabelValues("webhook").Inc()
	s.logger.Info("License key issued",
		zap.String("order_id", orderID),
		zap.Int64("order_number", ev.Data.Attributes.OrderNumber))

	return &IssueOutcome{
		Issued:     true,
		LicenseKey: key,
		Email:      email,
		OrderID:    orderID,
		EventName:  ev.Meta.EventName,
	}, nil
}

// recordIssuance writes the audit record asynchronously. A storage
// failure must not fail the webhook: the customer already has their key.
func (s *IssuerService) recordIssuance(ev *webhook.Event, key string) {
	if s.repo == nil {
		return
	}

	rec := &issuance.Issuance{
		OrderID:     ev.Data.Attributes.Identifier,
		OrderNumber: ev.Data.Attributes.OrderNumber,
		Email:       ev.Data.Attributes.UserEmail,
		EventName:   ev.Meta.EventName,
		LicenseKey:  key,
		LicenseType: licensekey.TypeStandard,
		Status:      issuance.StatusIssued,
		IssuedAt:    time.Now().UTC(),
		ExpiresAt:   sql.NullTime{},
	}

	go func(rec *issuance.Issuance) {
		ctxAsync, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.repo.Create(ctxAsync, rec); err != nil {
			s.logger.Error("Failed to write issuance audit record",
				zap.String("order_id", rec.OrderID), zap.Error(err))
		}
	}(rec)
}
