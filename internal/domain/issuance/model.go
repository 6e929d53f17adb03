package issuance

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusIssued  Status = "issued"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Issuance is the audit record written when a license key is minted.
// The key itself is self-contained and verifies offline; these records
// exist for traceability and manual reissue, not for validation. Marking
// a record revoked is bookkeeping only: already-issued keys cannot be
// invalidated after the fact.
type Issuance struct {
	ID          uuid.UUID      `db:"id"`
	OrderID     string         `db:"order_id"`
	OrderNumber int64          `db:"order_number"`
	Email       string         `db:"email"`
	EventName   string         `db:"event_name"`
	LicenseKey  string         `db:"license_key"`
	LicenseType string         `db:"license_type"`
	Status      Status         `db:"status"`
	IssuedAt    time.Time      `db:"issued_at"`
	ExpiresAt   sql.NullTime   `db:"expires_at"`
	Note        sql.NullString `db:"note"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}
