package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/app/repositories"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/auth"
	"github.com/shashiranjanraj/studio/pkg/besteffort"
	"github.com/shashiranjanraj/studio/pkg/cache"
	"github.com/shashiranjanraj/studio/pkg/event"
	"github.com/shashiranjanraj/studio/pkg/logger"
	"github.com/shashiranjanraj/studio/pkg/metrics"
	"github.com/shashiranjanraj/studio/pkg/payment"
	"github.com/shashiranjanraj/studio/pkg/query"
)

var (
	taxRate           = decimal.RequireFromString("0.10")
	shippingFee       = decimal.NewFromInt(10)
	freeShippingAbove = decimal.NewFromInt(100)
)

// webhookDedupTTL bounds how long a delivered event id is remembered.
const webhookDedupTTL = 24 * time.Hour

var orderSchema = query.Schema{
	Fields: map[string]query.FieldType{
		"status":             query.String,
		"user":               query.ID,
		"total":              query.Number,
		"paymentInfo.status": query.String,
	},
	DefaultSort: "-createdAt",
}

// orderTransitions lists the moves an admin may make. pending -> processing
// happens only when the payment webhook confirms the charge.
var orderTransitions = map[string][]string{
	models.OrderPending:    {models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered},
}

type OrderService struct {
	orders   OrderStore
	products ProductStore
	gateway  Gateway
	cache    *cache.Cache
	bus      *event.Bus
	currency string
	timeout  time.Duration
	now      func() time.Time
}

type OrderConfig struct {
	Currency string
	// Timeout bounds each payment gateway call.
	Timeout time.Duration
}

func NewOrderService(orders OrderStore, products ProductStore, gateway Gateway, c *cache.Cache, bus *event.Bus, cfg OrderConfig) *OrderService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &OrderService{
		orders:   orders,
		products: products,
		gateway:  gateway,
		cache:    c,
		bus:      bus,
		currency: cfg.Currency,
		timeout:  cfg.Timeout,
		now:      time.Now,
	}
}

type OrderLineInput struct {
	Product  string `json:"product"  validate:"required,objectid"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

type ShippingAddressInput struct {
	Street     string `json:"street"     validate:"required"`
	City       string `json:"city"       validate:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country"    validate:"required"`
}

type CreateOrderInput struct {
	Items           []OrderLineInput      `json:"items"           validate:"required,min=1"`
	ShippingAddress *ShippingAddressInput `json:"shippingAddress" validate:"required"`
	PaymentMethod   string                `json:"paymentMethod"`
}

type orderLine struct {
	id  primitive.ObjectID
	hex string
	qty int
}

// mergeLines sums quantities of repeated products, keeping first-seen order.
func mergeLines(items []OrderLineInput) []orderLine {
	idx := map[primitive.ObjectID]int{}
	var out []orderLine
	for _, it := range items {
		id, _ := primitive.ObjectIDFromHex(it.Product)
		if i, ok := idx[id]; ok {
			out[i].qty += it.Quantity
			continue
		}
		idx[id] = len(out)
		out = append(out, orderLine{id: id, hex: it.Product, qty: it.Quantity})
	}
	return out
}

// CreateOrder validates every line against current stock, then decrements
// each line atomically. A decrement that loses a race undoes the earlier
// ones, so an order either reserves all of its stock or none of it.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("No order items")
	}
	if err := check(in); err != nil {
		return nil, err
	}
	uid, err := objectID(userID, "User")
	if err != nil {
		return nil, err
	}
	lines := mergeLines(in.Items)

	for _, l := range lines {
		p, err := s.products.FindByID(ctx, l.id)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Product not found: %s", l.hex)
		}
		if err != nil {
			return nil, err
		}
		if p.Stock < l.qty {
			return nil, apperr.Conflict("Insufficient stock for %s", p.Name)
		}
	}

	items := make([]models.OrderItem, 0, len(lines))
	reserved := make([]orderLine, 0, len(lines))
	for _, l := range lines {
		p, err := s.products.DecrementStock(ctx, l.id, l.qty)
		if err != nil {
			s.restock(ctx, reserved)
			switch {
			case errors.Is(err, repositories.ErrInsufficientStock):
				metrics.StockConflicts.Inc()
				name := l.hex
				if cur, ferr := s.products.FindByID(ctx, l.id); ferr == nil {
					name = cur.Name
				}
				return nil, apperr.Conflict("Insufficient stock for %s", name)
			case errors.Is(err, repositories.ErrNotFound):
				return nil, apperr.NotFound("Product not found: %s", l.hex)
			}
			return nil, err
		}
		reserved = append(reserved, l)
		_ = s.cache.Del(ctx, "product:"+l.hex)
		items = append(items, models.OrderItem{Product: p.ID, Name: p.Name, Price: p.Price, Quantity: l.qty})
	}

	subtotal, tax, shipping, total := Totals(items)
	method := in.PaymentMethod
	if method == "" {
		method = "card"
	}
	a := in.ShippingAddress
	order := &models.Order{
		User:  uid,
		Items: items,
		ShippingAddress: models.Address{
			Street: a.Street, City: a.City, State: a.State, PostalCode: a.PostalCode, Country: a.Country,
		},
		Subtotal:    subtotal.InexactFloat64(),
		Tax:         tax.InexactFloat64(),
		Shipping:    shipping.InexactFloat64(),
		Total:       total.InexactFloat64(),
		PaymentInfo: models.PaymentInfo{Type: method, Status: models.PaymentPending},
		Status:      models.OrderPending,
		CreatedAt:   s.now(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.restock(ctx, reserved)
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	logger.WithCtx(ctx).Info("order created", "order_id", order.ID.Hex(), "total", order.Total)
	s.bus.FireAsync(ctx, event.OrderCreated, order)
	return order, nil
}

// Totals computes subtotal, 10% tax rounded to cents, shipping (free above
// 100) and the grand total.
func Totals(items []models.OrderItem) (subtotal, tax, shipping, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	tax = subtotal.Mul(taxRate).Round(2)
	shipping = shippingFee
	if subtotal.GreaterThan(freeShippingAbove) {
		shipping = decimal.Zero
	}
	total = subtotal.Add(tax).Add(shipping)
	return subtotal, tax, shipping, total
}

func (s *OrderService) restock(ctx context.Context, lines []orderLine) {
	for _, l := range lines {
		l := l
		besteffort.Run(ctx, "order.restock", func(ctx context.Context) error {
			return s.products.IncrementStock(ctx, l.id, l.qty)
		}, "product_id", l.hex, "quantity", l.qty)
		_ = s.cache.Del(ctx, "product:"+l.hex)
	}
}

// PaymentIntent is what the client needs to confirm a card payment.
type PaymentIntent struct {
	ClientSecret  string `json:"clientSecret"`
	TransactionID string `json:"transactionId"`
}

// CreatePaymentIntent asks the gateway for an intent over the order total.
// Only the user who placed the order may pay for it.
func (s *OrderService) CreatePaymentIntent(ctx context.Context, orderID string, requester auth.Identity) (*PaymentIntent, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.User.Hex() != requester.ID {
		return nil, apperr.Auth("Not authorized to pay for this order")
	}
	if order.PaymentInfo.Status == models.PaymentCompleted {
		return nil, apperr.Validation("Order is already paid")
	}
	if order.Status == models.OrderCancelled {
		return nil, apperr.Validation("Order is cancelled")
	}

	amount := decimal.NewFromFloat(order.Total).Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	intent, err := s.gateway.CreateIntent(callCtx, amount, s.currency, map[string]string{"orderId": order.ID.Hex()})
	if err != nil {
		return nil, apperr.Integration("Payment could not be initiated").Wrap(err)
	}

	order.PaymentInfo.TransactionID = intent.ID
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	return &PaymentIntent{ClientSecret: intent.ClientSecret, TransactionID: intent.ID}, nil
}

// HandlePaymentWebhook applies a signed gateway event. Events for unknown
// orders and unhandled types are acknowledged without effect.
func (s *OrderService) HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return apperr.Validation("Webhook Error: %s", err.Error())
	}
	metrics.Webhook("stripe", ev.Type)
	log := logger.WithCtx(ctx).With("event_id", ev.ID, "event_type", ev.Type)

	if ev.Type != payment.EventIntentSucceeded && ev.Type != payment.EventIntentFailed {
		log.Debug("payment webhook ignored")
		return nil
	}

	key := "webhook:stripe:" + ev.ID
	first, err := s.cache.Claim(ctx, key, webhookDedupTTL)
	if err != nil {
		log.Warn("webhook de-duplication unavailable", "error", err)
	} else if !first {
		log.Info("payment webhook already processed")
		return nil
	}

	if err := s.applyPaymentEvent(ctx, ev, log); err != nil {
		// The gateway redelivers on error; the retry must not look processed.
		if derr := s.cache.Del(ctx, key); derr != nil {
			log.Warn("webhook claim not released", "error", derr)
		}
		return err
	}
	return nil
}

// applyPaymentEvent moves the payment forward only: a failure never
// overwrites a completed or refunded payment, and a success is applied once.
func (s *OrderService) applyPaymentEvent(ctx context.Context, ev *payment.Event, log *slog.Logger) error {
	order, err := s.orderForEvent(ctx, ev)
	if err != nil {
		return err
	}
	if order == nil {
		log.Warn("payment webhook for unknown order", "order_id", ev.Metadata["orderId"], "intent_id", ev.IntentID)
		return nil
	}

	current := order.PaymentInfo.Status
	switch ev.Type {
	case payment.EventIntentSucceeded:
		if current != models.PaymentPending && current != models.PaymentFailed {
			log.Info("payment success ignored", "order_id", order.ID.Hex(), "payment_status", current)
			return nil
		}
		now := s.now()
		order.PaymentInfo.Status = models.PaymentCompleted
		order.PaymentInfo.TransactionID = ev.IntentID
		order.PaidAt = &now
		if order.Status == models.OrderPending {
			order.Status = models.OrderProcessing
		}
	case payment.EventIntentFailed:
		if current != models.PaymentPending {
			log.Info("payment failure ignored", "order_id", order.ID.Hex(), "payment_status", current)
			return nil
		}
		order.PaymentInfo.Status = models.PaymentFailed
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return err
	}
	log.Info("order payment updated", "order_id", order.ID.Hex(), "payment_status", order.PaymentInfo.Status)
	if order.PaymentInfo.Status == models.PaymentCompleted {
		s.bus.FireAsync(ctx, event.OrderPaid, order)
	}
	return nil
}

// orderForEvent finds the order by the orderId metadata, falling back to
// the intent id stored when the intent was created.
func (s *OrderService) orderForEvent(ctx context.Context, ev *payment.Event) (*models.Order, error) {
	if hex := ev.Metadata["orderId"]; hex != "" {
		if id, err := primitive.ObjectIDFromHex(hex); err == nil {
			o, err := s.orders.FindByID(ctx, id)
			if err == nil {
				return o, nil
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				return nil, err
			}
		}
	}
	if ev.IntentID == "" {
		return nil, nil
	}
	o, err := s.orders.FindByTransactionID(ctx, ev.IntentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return o, err
}

// GetOrder returns an order to its owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, id string, requester auth.Identity) (*models.Order, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.Owns(order.User.Hex()) {
		return nil, apperr.Forbidden("Not authorized to access this order")
	}
	return order, nil
}

func (s *OrderService) MyOrders(ctx context.Context, userID string) ([]models.Order, error) {
	uid, err := objectID(userID, "User")
	if err != nil {
		return nil, err
	}
	return s.orders.FindByUser(ctx, uid)
}

func (s *OrderService) ListOrders(ctx context.Context, values url.Values) (*Page[models.Order], error) {
	q, err := query.Parse(values, orderSchema)
	if err != nil {
		return nil, err
	}
	docs, total, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Page[models.Order]{Items: docs, Pagination: query.NewPagination(q, total)}, nil
}

// UpdateStatus moves an order along the fulfilment state machine.
// Cancelling returns every line to stock. The change is conditional on the
// status read, so of two concurrent transitions from the same state only
// one applies.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !allowed(orderTransitions, order.Status, status) {
		return nil, apperr.Validation("Cannot change order status from %s to %s", order.Status, status)
	}

	var deliveredAt *time.Time
	if status == models.OrderDelivered {
		now := s.now()
		deliveredAt = &now
	}
	updated, err := s.orders.SetStatus(ctx, order.ID, order.Status, status, deliveredAt)
	if errors.Is(err, repositories.ErrStale) {
		return nil, apperr.Conflict("Order status changed from %s, reload and try again", order.Status)
	}
	if err != nil {
		return nil, err
	}

	if status == models.OrderCancelled {
		lines := make([]orderLine, len(updated.Items))
		for i, it := range updated.Items {
			lines[i] = orderLine{id: it.Product, hex: it.Product.Hex(), qty: it.Quantity}
		}
		s.restock(ctx, lines)
	}
	s.bus.FireAsync(ctx, event.OrderStatus, updated)
	return updated, nil
}

func (s *OrderService) find(ctx context.Context, id string) (*models.Order, error) {
	oid, err := objectID(id, "Order")
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Order", id)
	}
	return order, nil
}

func allowed(transitions map[string][]string, from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
