package orders

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	"github.com/angelmondragon/floristeria-backend/pkg/outbox/payloads"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

type recipient struct {
	Name  string
	Email string
}

// shortID is the order number shown to customers.
func shortID(order *models.Order) string {
	return strings.ToUpper(order.ID.String()[:8])
}

func composeNotification(order *models.Order, to recipient, state enums.OrderState, reason string) payloads.NotificationRequestedEvent {
	number := shortID(order)
	label := state.Label()

	subject := fmt.Sprintf("Tu pedido #%s está %s", number, label)
	if reason == "guest_order_placed" || reason == "checkout" {
		subject = fmt.Sprintf("Recibimos tu pedido #%s", number)
	}

	greeting := "Hola"
	if name := strings.TrimSpace(to.Name); name != "" {
		greeting = "Hola " + html.EscapeString(name)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<p>%s,</p>", greeting)
	fmt.Fprintf(&body, "<p>El estado de tu pedido <strong>#%s</strong> es ahora <strong>%s</strong>.</p>", number, label)
	fmt.Fprintf(&body, "<p>Total: $%s</p>", order.Total().StringFixed(2))
	body.WriteString("<p>Gracias por comprar en nuestra floristería.</p>")

	return payloads.NotificationRequestedEvent{
		OrderID: order.ID,
		To:      to.Email,
		Subject: subject,
		Body:    body.String(),
		Reason:  reason,
	}
}
