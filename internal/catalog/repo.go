package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/internal/repo"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
)

// Repository reads arrangements. Catalog writes belong to the admin service.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Arrangement, error) {
	var arrangement models.Arrangement
	if err := r.DB(ctx).First(&arrangement, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &arrangement, nil
}

func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Arrangement, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Arrangement
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
