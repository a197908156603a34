package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
)

// Snapshot is the catalog view carts and orders copy from.
type Snapshot struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	ImageURL        *string         `json:"image_url,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent int             `json:"discount_percent"`
	Available       bool            `json:"available"`
}

// EffectivePrice is the discounted unit price.
func (s Snapshot) EffectivePrice() decimal.Decimal {
	return models.DiscountedPrice(s.Price, s.DiscountPercent)
}

// Provider is the read-only catalog surface consumed by the cart and orders.
type Provider interface {
	GetArrangement(ctx context.Context, id uuid.UUID) (Snapshot, error)
	GetArrangements(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Snapshot, error)
}

type arrangementReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Arrangement, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Arrangement, error)
}

type service struct {
	repo arrangementReader
}

func NewService(repo arrangementReader) (Provider, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetArrangement(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	if id == uuid.Nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "arrangement id required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Snapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "arrangement not found")
		}
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load arrangement")
	}
	return toSnapshot(*row), nil
}

// GetArrangements returns snapshots keyed by id. Unknown ids are absent from
// the map; callers decide whether that is an error.
func (s *service) GetArrangements(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Snapshot, error) {
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load arrangements")
	}
	out := make(map[uuid.UUID]Snapshot, len(rows))
	for _, row := range rows {
		out[row.ID] = toSnapshot(row)
	}
	return out, nil
}

func toSnapshot(row models.Arrangement) Snapshot {
	return Snapshot{
		ID:              row.ID,
		Name:            row.Name,
		ImageURL:        row.ImageURL,
		Price:           row.Price,
		DiscountPercent: row.Discount,
		Available:       row.Available && row.Stock > 0,
	}
}
