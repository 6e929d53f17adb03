package issuance

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("issuance record not found")
	ErrUpdateFailed = errors.New("issuance record update failed")
)

type ListParams struct {
	Status    *Status
	Email     *string
	OrderID   *string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type Repository interface {
	Create(ctx context.Context, rec *Issuance) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Issuance, error)
	List(ctx context.Context, params ListParams) ([]*Issuance, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
