package users

import (
	"context"

	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads registered customers. Accounts are created by the auth service.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Contact returns the notification contact for a user.
func (r *Repository) Contact(ctx context.Context, id uuid.UUID) (Contact, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return Contact{}, err
	}
	return FromModel(user), nil
}

// ContactTx reads the contact through tx when one is open.
func (r *Repository) ContactTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (Contact, error) {
	return r.WithTx(tx).Contact(ctx, id)
}
