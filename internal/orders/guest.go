package orders

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/internal/catalog"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
	"github.com/angelmondragon/floristeria-backend/pkg/wompi"
)

type mergedItem struct {
	ArrangementID uuid.UUID
	Quantity      int
}

// CreateGuestOrder places a pending order with its lines and a pending payment
// for customers without an account.
func (s *service) CreateGuestOrder(ctx context.Context, input GuestOrderInput) (*GuestOrderResult, error) {
	if err := validateGuestInput(&input); err != nil {
		return nil, err
	}
	items := mergeItems(input.Items)

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ArrangementID)
	}
	snapshots, err := s.catalog.GetArrangements(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		snap, ok := snapshots[item.ArrangementID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("arrangement %s not found", item.ArrangementID))
		}
		if !snap.Available {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("arrangement %s is not available", snap.Name)).
				WithDetails(map[string]any{"arrangement_id": snap.ID})
		}
		lines = append(lines, lineFromSnapshot(snap, item.Quantity))
	}

	order := &models.Order{
		State:        enums.OrderStatePending,
		GuestName:    strPtr(input.Name),
		GuestEmail:   strPtr(input.Email),
		GuestPhone:   strPtr(input.Phone),
		GuestAddress: strPtr(input.Address),
		Comments:     input.Comments,
	}

	var payment *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create guest order")
		}
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if err := repo.CreateLines(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order lines")
		}
		order.Lines = lines

		created, err := repo.CreatePayment(ctx, &models.Payment{
			OrderID:           order.ID,
			Method:            input.Method,
			Amount:            order.Total(),
			State:             enums.PaymentStatePending,
			ExternalReference: wompi.NewReference(order.ID),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		payment = created

		return s.recordTransition(ctx, tx, order, "", enums.OrderStatePending, "guest_order_placed", SystemActor)
	})
	if err != nil {
		return nil, err
	}

	detail := s.buildDetail(order, payment, snapshots, ContactView{
		Name:  input.Name,
		Email: input.Email,
		Phone: order.GuestPhone,
	}, order.GuestAddress)
	return &GuestOrderResult{Order: detail, Payment: *toPaymentView(payment)}, nil
}

func validateGuestInput(input *GuestOrderInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Address = strings.TrimSpace(input.Address)

	missing := []string{}
	if input.Name == "" {
		missing = append(missing, "name")
	}
	if input.Email == "" {
		missing = append(missing, "email")
	}
	if input.Phone == "" {
		missing = append(missing, "phone")
	}
	if input.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest contact fields required").
			WithDetails(map[string]any{"missing": missing})
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email")
	}
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	for _, item := range input.Items {
		if item.ArrangementID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "arrangement id required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	return nil
}

// mergeItems sums quantities of repeated arrangements, keeping first-seen order.
func mergeItems(items []GuestItem) []mergedItem {
	index := map[uuid.UUID]int{}
	out := make([]mergedItem, 0, len(items))
	for _, item := range items {
		if pos, ok := index[item.ArrangementID]; ok {
			out[pos].Quantity += item.Quantity
			continue
		}
		index[item.ArrangementID] = len(out)
		out = append(out, mergedItem{ArrangementID: item.ArrangementID, Quantity: item.Quantity})
	}
	return out
}

func lineFromSnapshot(snap catalog.Snapshot, quantity int) models.OrderLine {
	return models.OrderLine{
		ArrangementID:   snap.ID,
		Quantity:        quantity,
		UnitPrice:       snap.Price,
		DiscountPercent: snap.DiscountPercent,
		Price:           snap.EffectivePrice(),
	}
}

func strPtr(value string) *string {
	return &value
}
