package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carvdstudio/carvd-licensing/internal/domain/issuance"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// IssuanceExpireHandler sweeps time-limited issuance records whose
// expiry has passed and marks them expired. Webhook-issued keys are
// perpetual and never match; only manually issued time-limited records
// do.
type IssuanceExpireHandler struct {
	repo   issuance.Repository
	logger *zap.Logger
}

func NewIssuanceExpireHandler(repo issuance.Repository, logger *zap.Logger) *IssuanceExpireHandler {
	return &IssuanceExpireHandler{
		repo:   repo,
		logger: logger.Named("IssuanceExpireHandler"),
	}
}

func (h *IssuanceExpireHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeIssuanceExpire {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p ExpireIssuancePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal payload for issuance expiration task", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	h.logger.Info("Processing issuance expiration check task...")

	now := time.Now().UTC()
	params := issuance.ListParams{
		Status:    ptr(issuance.StatusIssued),
		SortBy:    "expires_at",
		SortOrder: "ASC",
		Limit:     1000,
		Offset:    0,
	}

	updatedCount := 0
	processedCount := 0

	for {
		records, total, err := h.repo.List(ctx, params)
		if err != nil {
			h.logger.Error("Failed to list issued records for expiration check", zap.Error(err))
			return fmt.Errorf("repository error listing issued records: %w", err)
		}

		if len(records) == 0 {
			h.logger.Debug("No more issued records found to check for expiration.")
			break
		}

		processedCount += len(records)

		for _, rec := range records {
			if rec.ExpiresAt.Valid && rec.ExpiresAt.Time.UTC().Before(now) {
				h.logger.Info("Found expired issuance record, updating status",
					zap.String("issuance_id", rec.ID.String()),
					zap.String("order_id", rec.OrderID),
					zap.Time("expires_at", rec.ExpiresAt.Time),
				)

				errUpdate := h.repo.UpdateStatus(ctx, rec.ID, issuance.StatusExpired)
				if errUpdate != nil {
					h.logger.Error("Failed to update status for expired issuance record",
						zap.String("issuance_id", rec.ID.String()),
						zap.Error(errUpdate),
					)
				} else {
					updatedCount++
				}
			}
		}

		if int64(len(records)) < int64(params.Limit) {
			break
		}

		params.Offset += params.Limit

		if params.Offset > int(total) && total > 0 {
			h.logger.Warn("Offset exceeded total count during expiration check, breaking loop", zap.Int("offset", params.Offset), zap.Int64("total", total))
			break
		}
	}

	h.logger.Info("Issuance expiration check task finished", zap.Int("processed_records", processedCount), zap.Int("updated_to_expired", updatedCount))
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
