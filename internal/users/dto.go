package users

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
)

// Contact is the subset of a user that order views and notifications need.
type Contact struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Phone   *string   `json:"phone,omitempty"`
	Address *string   `json:"address,omitempty"`
}

// FromModel maps a persisted user into a Contact.
func FromModel(user *models.User) Contact {
	if user == nil {
		return Contact{}
	}
	return Contact{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Phone:   user.Phone,
		Address: user.Address,
	}
}
