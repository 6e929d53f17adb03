package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/carvdstudio/carvd-licensing/internal/domain/issuance"
	"github.com/carvdstudio/carvd-licensing/internal/handler/dto"
	"github.com/carvdstudio/carvd-licensing/internal/ierr"
	"github.com/carvdstudio/carvd-licensing/internal/licensekey"
	"github.com/carvdstudio/carvd-licensing/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IssuanceService is the admin plane over issuance audit records, plus
// manual minting for support-driven reissues.
type IssuanceService struct {
	repo   issuance.Repository
	signer *licensekey.Signer
	logger *zap.Logger
}

func NewIssuanceService(repo issuance.Repository, signer *licensekey.Signer, logger *zap.Logger) *IssuanceService {
	return &IssuanceService{
		repo:   repo,
		signer: signer,
		logger: logger.Named("IssuanceService"),
	}
}

func (s *IssuanceService) ListIssuances(ctx context.Context, req *dto.ListIssuancesRequest) ([]*issuance.Issuance, int64, error) {
	params := issuance.ListParams{
		Status:    req.Status,
		Email:     req.Email,
		OrderID:   req.OrderID,
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	records, total, err := s.repo.List(ctx, params)
	if err != nil {
		s.logger.Error("Failed to list issuance records via repository", zap.Error(err))
		return nil, 0, fmt.Errorf("repository error listing issuance records: %w", err)
	}
	return records, total, nil
}

func (s *IssuanceService) GetIssuanceByID(ctx context.Context, id uuid.UUID) (*issuance.Issuance, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// RevokeIssuance marks a record revoked for bookkeeping. The signed key
// the customer holds remains cryptographically valid; there is no online
// revocation in the offline-verification model.
func (s *IssuanceService) RevokeIssuance(ctx context.Context, id uuid.UUID) error {
	s.logger.Info("Attempting to revoke issuance record", zap.String("id", id.String()))
	if err := s.repo.UpdateStatus(ctx, id, issuance.StatusRevoked); err != nil {
		s.logger.Error("Failed to revoke issuance record", zap.String("id", id.String()), zap.Error(err))
		return err
	}
	s.logger.Info("Issuance record revoked", zap.String("id", id.String()))
	return nil
}

// ManualIssue mints a key outside the webhook flow, for support cases
// such as reissuing a lost key. Unlike webhook issuance the audit record
// is written synchronously: a failed write here should fail the request.
func (s *IssuanceService) ManualIssue(ctx context.Context, req *dto.IssueLicenseRequest) (*issuance.Issuance, error) {
	if s.signer == nil {
		s.logger.Error("Cannot issue license manually: signing key not configured")
		return nil, ierr.ErrSigningKeyAbsent
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = "manual-" + uuid.NewString()
	}

	key, err := s.signer.Sign(req.Email, orderID, req.ExpiresAt)
	if err != nil {
		s.logger.Error("Failed to sign manually issued license key",
			zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	rec := &issuance.Issuance{
		OrderID:     orderID,
		Email:       req.Email,
		EventName:   "manual",
		LicenseKey:  key,
		LicenseType: licensekey.TypeStandard,
		Status:      issuance.StatusIssued,
		IssuedAt:    time.Now().UTC(),
	}
	if req.ExpiresAt != nil {
		rec.ExpiresAt = sql.NullTime{Time: *req.ExpiresAt, Valid: true}
	}
	if req.Note != "" {
		rec.Note = sql.NullString{String: req.Note, Valid: true}
	}

	insertedID, err := s.repo.Create(ctx, rec)
	if err != nil {
		s.logger.Error("Failed to record manually issued license", zap.Error(err))
		return nil, fmt.Errorf("repository error recording manual issuance: %w", err)
	}

	created, err := s.repo.FindByID(ctx, insertedID)
	if err != nil {
		s.logger.Error("Failed to find newly created issuance record",
			zap.String("id", insertedID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve created issuance record (id: %s): %w", insertedID, err)
	}

	metrics.LicensesIssued.WithLabelValues("manual").Inc()
	s.logger.Info("License key issued manually",
		zap.String("id", created.ID.String()),
		zap.String("order_id", created.OrderID))
	return created, nil
}

func (s *IssuanceService) GetDashboardSummary(ctx context.Context) (*dto.DashboardSummaryResponse, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to build dashboard summary", zap.Error(err))
		return nil, fmt.Errorf("repository error building summary: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &dto.DashboardSummaryResponse{
		TotalIssuances: total,
		StatusCounts:   counts,
	}, nil
}
