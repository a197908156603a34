package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/internal/catalog"
	"github.com/angelmondragon/floristeria-backend/internal/orders"
	"github.com/angelmondragon/floristeria-backend/pkg/db"
	"github.com/angelmondragon/floristeria-backend/pkg/db/dbtest"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
)

func newTestService(t *testing.T, conn *gorm.DB, repo orders.Repository) Service {
	t.Helper()
	provider, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(repo, db.NewFromGorm(conn), provider)
	require.NoError(t, err)
	return svc
}

func TestGetOrCreateCartIsStable(t *testing.T) {
	_, conn := dbtest.Client(t)
	user := dbtest.SeedUser(t, conn, "cart@example.com")
	svc := newTestService(t, conn, orders.NewRepository(conn))

	first, err := svc.GetOrCreateCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStateCart, first.State)
	assert.Empty(t, first.Lines)

	second, err := svc.GetOrCreateCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

// missingCartRepo hides the existing cart from the first lookup to force the
// insert path into the unique index.
type missingCartRepo struct {
	orders.Repository
	mu     sync.Mutex
	misses int
}

func (r *missingCartRepo) FindCart(ctx context.Context, customerID uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	if r.misses > 0 {
		r.misses--
		r.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	r.mu.Unlock()
	return r.Repository.FindCart(ctx, customerID)
}

func TestGetOrCreateCartRecoversFromUniqueViolation(t *testing.T) {
	_, conn := dbtest.Client(t)
	user := dbtest.SeedUser(t, conn, "race@example.com")
	base := orders.NewRepository(conn)

	existing := &models.Order{CustomerID: &user.ID, State: enums.OrderStateCart}
	_, err := base.CreateOrder(context.Background(), existing)
	require.NoError(t, err)

	svc := newTestService(t, conn, &missingCartRepo{Repository: base, misses: 1})
	cart, err := svc.GetOrCreateCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, cart.ID)
}

func TestGetOrCreateCartConcurrentCallersConverge(t *testing.T) {
	_, conn := dbtest.Client(t)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	user := dbtest.SeedUser(t, conn, "concurrent@example.com")
	svc := newTestService(t, conn, orders.NewRepository(conn))

	const callers = 8
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cart, err := svc.GetOrCreateCart(context.Background(), user.ID)
			errs[i] = err
			if cart != nil {
				ids[i] = cart.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).
		Where("customer_id = ? AND state = ?", user.ID, enums.OrderStateCart).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddLineSnapshotsAndIncrements(t *testing.T) {
	_, conn := dbtest.Client(t)
	user := dbtest.SeedUser(t, conn, "lines@example.com")
	roses := dbtest.SeedArrangement(t, conn, "Rosas", "25.00", 20)
	svc := newTestService(t, conn, orders.NewRepository(conn))

	line, err := svc.AddLine(context.Background(), user.ID, roses.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, 20, line.DiscountPercent)
	assert.True(t, line.Price.Equal(decimal.RequireFromString("20.00")))

	again, err := svc.AddLine(context.Background(), user.ID, roses.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, line.ID, again.ID)
	assert.Equal(t, 3, again.Quantity)

	view, err := svc.Summary(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, "Rosas", view.Lines[0].Name)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("60.00")))
}

func TestAddLineValidation(t *testing.T) {
	_, conn := dbtest.Client(t)
	user := dbtest.SeedUser(t, conn, "invalid@example.com")
	gone := dbtest.SeedArrangement(t, conn, "Agotado", "10.00", 0)
	dbtest.MarkUnavailable(t, conn, gone.ID)
	svc := newTestService(t, conn, orders.NewRepository(conn))

	_, err := svc.AddLine(context.Background(), user.ID, uuid.New(), 1)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.AddLine(context.Background(), user.ID, gone.ID, 1)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.AddLine(context.Background(), user.ID, gone.ID, 0)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestAdjustQuantityClampsAtOne(t *testing.T) {
	_, conn := dbtest.Client(t)
	user := dbtest.SeedUser(t, conn, "adjust@example.com")
	other := dbtest.SeedUser(t, conn, "other-adjust@example.com")
	lilies := dbtest.SeedArrangement(t, conn, "Lirios", "12.00", 0)
	svc := newTestService(t, conn, orders.NewRepository(conn))

	line, err := svc.AddLine(context.Background(), user.ID, lilies.ID, 2)
	require.NoError(t, err)

	up, err := svc.AdjustQuantity(context.Background(), user.ID, line.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, up.Quantity)

	down, err := svc.AdjustQuantity(context.Background(), user.ID, line.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, 1, down.Quantity)

	_, err = svc.GetOrCreateCart(context.Background(), other.ID)
	require.NoError(t, err)
	_, err = svc.AdjustQuantity(context.Background(), other.ID, line.ID, 1)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRemoveLineRefreshesLivePayment(t *testing.T) {
	_, conn := dbtest.Client(t)
	user := dbtest.SeedUser(t, conn, "remove@example.com")
	roses := dbtest.SeedArrangement(t, conn, "Rosas", "10.00", 0)
	tulips := dbtest.SeedArrangement(t, conn, "Tulipanes", "7.50", 0)
	repo := orders.NewRepository(conn)
	svc := newTestService(t, conn, repo)

	rosesLine, err := svc.AddLine(context.Background(), user.ID, roses.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), user.ID, tulips.ID, 2)
	require.NoError(t, err)

	cart, err := svc.GetOrCreateCart(context.Background(), user.ID)
	require.NoError(t, err)
	payment, err := repo.CreatePayment(context.Background(), &models.Payment{
		OrderID:           cart.ID,
		Method:            enums.PaymentMethodWompi,
		Amount:            cart.Total(),
		State:             enums.PaymentStatePending,
		ExternalReference: cart.ID.String() + "-deadbeef",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveLine(context.Background(), user.ID, rosesLine.ID))

	refreshed, err := repo.FindPaymentByReference(context.Background(), payment.ExternalReference)
	require.NoError(t, err)
	assert.True(t, refreshed.Amount.Equal(decimal.RequireFromString("15.00")), refreshed.Amount.String())

	err = svc.RemoveLine(context.Background(), user.ID, rosesLine.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
