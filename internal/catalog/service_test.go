package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/floristeria-backend/pkg/db/dbtest"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
)

func TestGetArrangement(t *testing.T) {
	conn := dbtest.Open(t)
	seeded := dbtest.SeedArrangement(t, conn, "Rosas Rojas", "25.00", 20)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	snap, err := svc.GetArrangement(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rosas Rojas", snap.Name)
	assert.True(t, snap.Price.Equal(decimal.RequireFromString("25")))
	assert.Equal(t, 20, snap.DiscountPercent)
	assert.True(t, snap.Available)
	assert.True(t, snap.EffectivePrice().Equal(decimal.RequireFromString("20.00")))
}

func TestGetArrangementNotFound(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)

	_, err = svc.GetArrangement(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetArrangement(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAvailabilityRequiresStock(t *testing.T) {
	conn := dbtest.Open(t)
	seeded := dbtest.SeedArrangement(t, conn, "Girasoles", "18.50", 0)
	require.NoError(t, conn.Model(&models.Arrangement{}).Where("id = ?", seeded.ID).Update("stock", 0).Error)
	hidden := dbtest.SeedArrangement(t, conn, "Lirios", "30.00", 0)
	dbtest.MarkUnavailable(t, conn, hidden.ID)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	snaps, err := svc.GetArrangements(context.Background(), []uuid.UUID{seeded.ID, hidden.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.False(t, snaps[seeded.ID].Available)
	assert.False(t, snaps[hidden.ID].Available)
}
