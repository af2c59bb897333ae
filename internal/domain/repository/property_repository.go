package repository

import (
	"context"

	"novaland/internal/domain/entity"
)

// PropertyRepository is a read-only view of the on-chain property catalog.
type PropertyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Property, error)
}
