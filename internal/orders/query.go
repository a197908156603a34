package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/internal/catalog"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
	"github.com/angelmondragon/floristeria-backend/pkg/pagination"
)

func (s *service) GetDetail(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDetail, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !actor.IsAdmin() && !actor.owns(order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}

	payment, err := s.repo.FindLatestPayment(ctx, order.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		payment = nil
	}

	ids := make([]uuid.UUID, 0, len(order.Lines))
	for _, line := range order.Lines {
		ids = append(ids, line.ArrangementID)
	}
	snapshots := map[uuid.UUID]catalog.Snapshot{}
	if len(ids) > 0 {
		snapshots, err = s.catalog.GetArrangements(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	contact := ContactView{}
	var address *string
	if order.IsGuest() {
		contact = ContactView{Name: deref(order.GuestName), Email: deref(order.GuestEmail), Phone: order.GuestPhone}
		address = order.GuestAddress
	} else {
		user, err := s.contacts.ContactTx(ctx, nil, *order.CustomerID)
		switch {
		case err == nil:
			contact = ContactView{Name: user.Name, Email: user.Email, Phone: user.Phone}
			address = user.Address
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer contact")
		}
	}

	detail := s.buildDetail(order, payment, snapshots, contact, address)
	return &detail, nil
}

func (s *service) buildDetail(order *models.Order, payment *models.Payment, snapshots map[uuid.UUID]catalog.Snapshot, contact ContactView, address *string) OrderDetail {
	lines := make([]LineView, 0, len(order.Lines))
	for _, line := range order.Lines {
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
	return OrderDetail{
		ID:              order.ID,
		State:           order.State,
		StateLabel:      order.State.Label(),
		Guest:           order.IsGuest(),
		CreatedAt:       order.CreatedAt,
		DeliveryAddress: address,
		Contact:         contact,
		Comments:        order.Comments,
		Payment:         toPaymentView(payment),
		ItemCount:       order.ItemCount(),
		Total:           order.Total(),
		Lines:           lines,
	}
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListCustomerOrders(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return &OrderList{Orders: toSummaries(rows), NextCursor: next}, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params, state *enums.OrderState) (*OrderList, error) {
	if state != nil && !state.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid state filter")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListOrders(ctx, params, state)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &OrderList{Orders: toSummaries(rows), NextCursor: next}, nil
}

func validateCursor(params pagination.Params) error {
	if _, err := params.Decode(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}
