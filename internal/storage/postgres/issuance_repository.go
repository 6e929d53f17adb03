package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carvdstudio/carvd-licensing/internal/domain/issuance"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type IssuanceRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewIssuanceRepository(db *pgxpool.Pool, logger *zap.Logger) *IssuanceRepository {
	return &IssuanceRepository{
		db:     db,
		logger: logger.Named("IssuanceRepository"),
	}
}

var _ issuance.Repository = (*IssuanceRepository)(nil)

func (r *IssuanceRepository) Create(ctx context.Context, rec *issuance.Issuance) (uuid.UUID, error) {
	query := `
        INSERT INTO issuances (
            order_id, order_number, email, event_name, license_key,
            license_type, status, issued_at, expires_at, note
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        ) RETURNING id
    `
	var insertedID uuid.UUID

	err := r.db.QueryRow(ctx, query,
		rec.OrderID,
		rec.OrderNumber,
		rec.Email,
		rec.EventName,
		rec.LicenseKey,
		rec.LicenseType,
		rec.Status,
		rec.IssuedAt,
		rec.ExpiresAt,
		rec.Note,
	).Scan(&insertedID)

	if err != nil {
		r.logger.Error("Failed to create issuance record in database",
			zap.String("order_id", rec.OrderID), zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create issuance record: %w", err)
	}

	r.logger.Info("Issuance record created", zap.String("id", insertedID.String()), zap.String("order_id", rec.OrderID))
	return insertedID, nil
}

func (r *IssuanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*issuance.Issuance, error) {
	query := selectColumns + ` WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	return r.scanIssuance(row)
}

func (r *IssuanceRepository) List(ctx context.Context, params issuance.ListParams) ([]*issuance.Issuance, int64, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if params.Status != nil {
		args = append(args, *params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Email != nil {
		args = append(args, *params.Email)
		conditions = append(conditions, fmt.Sprintf("email = $%d", len(args)))
	}
	if params.OrderID != nil {
		args = append(args, *params.OrderID)
		conditions = append(conditions, fmt.Sprintf("order_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM issuances` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count issuance records", zap.Error(err))
		return nil, 0, fmt.Errorf("database error counting issuance records: %w", err)
	}

	sortBy := sanitizeSortColumn(params.SortBy)
	sortOrder := "DESC"
	if strings.EqualFold(params.SortOrder, "ASC") {
		sortOrder = "ASC"
	}

	args = append(args, params.Limit)
	limitPos := len(args)
	args = append(args, params.Offset)
	offsetPos := len(args)

	query := selectColumns + where +
		fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", sortBy, sortOrder, limitPos, offsetPos)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query list of issuance records", zap.Error(err))
		return nil, 0, fmt.Errorf("database error on list issuance records: %w", err)
	}
	defer rows.Close()

	records := make([]*issuance.Issuance, 0)

	for rows.Next() {
		var rec issuance.Issuance
		err := rows.Scan(
			&rec.ID,
			&rec.OrderID,
			&rec.OrderNumber,
			&rec.Email,
			&rec.EventName,
			&rec.LicenseKey,
			&rec.LicenseType,
			&rec.Status,
			&rec.IssuedAt,
			&rec.ExpiresAt,
			&rec.Note,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan issuance row during list", zap.Error(err))
			return nil, 0, fmt.Errorf("database scan error during list: %w", err)
		}
		records = append(records, &rec)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating issuance rows", zap.Error(err))
		return nil, 0, fmt.Errorf("database iteration error on list issuance records: %w", err)
	}

	return records, total, nil
}

func (r *IssuanceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status issuance.Status) error {
	query := `UPDATE issuances SET status = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update issuance status", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("database error on update issuance status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update issuance status, but no rows were affected", zap.String("id", id.String()))
		return issuance.ErrNotFound
	}

	r.logger.Info("Issuance status updated", zap.String("id", id.String()), zap.String("status", string(status)))
	return nil
}

func (r *IssuanceRepository) CountByStatus(ctx context.Context) (map[issuance.Status]int64, error) {
	query := `SELECT status, COUNT(*) FROM issuances GROUP BY status`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to count issuance records by status", zap.Error(err))
		return nil, fmt.Errorf("database error counting by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[issuance.Status]int64)
	for rows.Next() {
		var status issuance.Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("database scan error counting by status: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error counting by status: %w", err)
	}

	return counts, nil
}

const selectColumns = `
    SELECT
        id, order_id, order_number, email, event_name, license_key,
        license_type, status, issued_at, expires_at, note, created_at, updated_at
    FROM issuances`

func sanitizeSortColumn(col string) string {
	switch col {
	case "issued_at", "expires_at", "email", "order_id", "status", "created_at":
		return col
	default:
		return "created_at"
	}
}

func (r *IssuanceRepository) scanIssuance(row pgx.Row) (*issuance.Issuance, error) {
	var rec issuance.Issuance
	err := row.Scan(
		&rec.ID,
		&rec.OrderID,
		&rec.OrderNumber,
		&rec.Email,
		&rec.EventName,
		&rec.LicenseKey,
		&rec.LicenseType,
		&rec.Status,
		&rec.IssuedAt,
		&rec.ExpiresAt,
		&rec.Note,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, issuance.ErrNotFound
		}

		r.logger.Error("Failed to scan issuance row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return &rec, nil
}
