package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/internal/catalog"
	"github.com/angelmondragon/floristeria-backend/internal/orders"
	"github.com/angelmondragon/floristeria-backend/pkg/db"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
)

const cartUniqueIndex = "orders_one_cart_per_customer"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the single active cart order of a customer.
type Service interface {
	GetOrCreateCart(ctx context.Context, customerID uuid.UUID) (*models.Order, error)
	AddLine(ctx context.Context, customerID, arrangementID uuid.UUID, quantity int) (*models.OrderLine, error)
	AdjustQuantity(ctx context.Context, customerID, lineID uuid.UUID, delta int) (*models.OrderLine, error)
	RemoveLine(ctx context.Context, customerID, lineID uuid.UUID) error
	Summary(ctx context.Context, customerID uuid.UUID) (*CartView, error)
}

type service struct {
	repo    orders.Repository
	tx      txRunner
	catalog catalog.Provider
}

// NewService builds a cart service on top of the orders repository.
func NewService(repo orders.Repository, tx txRunner, provider catalog.Provider) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if provider == nil {
		return nil, fmt.Errorf("catalog provider required")
	}
	return &service{repo: repo, tx: tx, catalog: provider}, nil
}

// GetOrCreateCart returns the customer's cart, creating an empty one when
// absent. A losing concurrent insert re-reads the winner's row.
func (s *service) GetOrCreateCart(ctx context.Context, customerID uuid.UUID) (*models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}

	cart, err := s.repo.FindCart(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	created, err := s.repo.CreateOrder(ctx, &models.Order{
		CustomerID: &customerID,
		State:      enums.OrderStateCart,
	})
	if err == nil {
		created.Lines = []models.OrderLine{}
		return created, nil
	}
	if !db.IsUniqueViolation(err, cartUniqueIndex) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}

	cart, err = s.repo.FindCart(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart after concurrent create")
	}
	return cart, nil
}

func (s *service) AddLine(ctx context.Context, customerID, arrangementID uuid.UUID, quantity int) (*models.OrderLine, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	snap, err := s.catalog.GetArrangement(ctx, arrangementID)
	if err != nil {
		return nil, err
	}
	if !snap.Available {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("arrangement %s is not available", snap.Name)).
			WithDetails(map[string]any{"arrangement_id": snap.ID})
	}
	if _, err := s.GetOrCreateCart(ctx, customerID); err != nil {
		return nil, err
	}

	var result *models.OrderLine
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockCart(ctx, repo, customerID)
		if err != nil {
			return err
		}

		existing, err := repo.FindLineByArrangement(ctx, cart.ID, snap.ID)
		switch {
		case err == nil:
			existing.Quantity += quantity
			if err := repo.UpdateLineQuantity(ctx, existing.ID, existing.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
			}
			result = existing
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		line := models.OrderLine{
			OrderID:         cart.ID,
			ArrangementID:   snap.ID,
			Quantity:        quantity,
			UnitPrice:       snap.Price,
			DiscountPercent: snap.DiscountPercent,
			Price:           snap.EffectivePrice(),
		}
		if err := repo.CreateLines(ctx, []models.OrderLine{line}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
		}
		created, err := repo.FindLineByArrangement(ctx, cart.ID, snap.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart line")
		}
		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdjustQuantity applies delta to a line, never going below one.
func (s *service) AdjustQuantity(ctx context.Context, customerID, lineID uuid.UUID, delta int) (*models.OrderLine, error) {
	var result *models.OrderLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockCart(ctx, repo, customerID)
		if err != nil {
			return err
		}
		line, err := findCartLine(ctx, repo, cart.ID, lineID)
		if err != nil {
			return err
		}

		next := line.Quantity + delta
		if next < 1 {
			next = 1
		}
		if next != line.Quantity {
			if err := repo.UpdateLineQuantity(ctx, line.ID, next); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
			}
			line.Quantity = next
		}
		result = line
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveLine deletes a line. A live payment attached to the cart gets its
// amount refreshed; checkout recomputes authoritatively.
func (s *service) RemoveLine(ctx context.Context, customerID, lineID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockCart(ctx, repo, customerID)
		if err != nil {
			return err
		}
		line, err := findCartLine(ctx, repo, cart.ID, lineID)
		if err != nil {
			return err
		}
		if err := repo.DeleteLine(ctx, line.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}

		live, err := repo.FindLivePayments(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load live payments")
		}
		if len(live) == 0 {
			return nil
		}
		remaining := make([]models.OrderLine, 0, len(cart.Lines))
		for _, l := range cart.Lines {
			if l.ID != line.ID {
				remaining = append(remaining, l)
			}
		}
		total := models.LinesTotal(remaining)
		for _, payment := range live {
			if err := repo.UpdatePaymentAmount(ctx, payment.ID, total); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh payment amount")
			}
		}
		return nil
	})
}

func (s *service) Summary(ctx context.Context, customerID uuid.UUID) (*CartView, error) {
	cart, err := s.GetOrCreateCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		ids = append(ids, line.ArrangementID)
	}
	snapshots := map[uuid.UUID]catalog.Snapshot{}
	if len(ids) > 0 {
		if snapshots, err = s.catalog.GetArrangements(ctx, ids); err != nil {
			return nil, err
		}
	}

	lines := make([]LineView, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		view := LineView{
			ID:              line.ID,
			ArrangementID:   line.ArrangementID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
			Price:           line.Price,
			LineTotal:       line.LineTotal(),
		}
		if snap, ok := snapshots[line.ArrangementID]; ok {
			view.Name = snap.Name
			view.ImageURL = snap.ImageURL
		}
		lines = append(lines, view)
	}

	return &CartView{
		OrderID:   cart.ID,
		Lines:     lines,
		ItemCount: cart.ItemCount(),
		Total:     cart.Total(),
	}, nil
}

func (s *service) lockCart(ctx context.Context, repo orders.Repository, customerID uuid.UUID) (*models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}
	cart, err := repo.LockCart(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}
	return cart, nil
}

func findCartLine(ctx context.Context, repo orders.Repository, cartID, lineID uuid.UUID) (*models.OrderLine, error) {
	line, err := repo.FindLine(ctx, cartID, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line not found in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	return line, nil
}
