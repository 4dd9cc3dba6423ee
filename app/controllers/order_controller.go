package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/studio/app/services"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/ctx"
	"github.com/shashiranjanraj/studio/pkg/payment"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// Store places an order. Validation happens in the service so that an empty
// item list answers "No order items".
func (oc *OrderController) Store(c *ctx.Context) {
	var in services.CreateOrderInput
	if !c.DecodeJSON(&in) {
		return
	}
	order, err := oc.orders.CreateOrder(c.Context(), c.Identity().ID, in)
	created(c, order, err)
}

func (oc *OrderController) MyOrders(c *ctx.Context) {
	orders, err := oc.orders.MyOrders(c.Context(), c.Identity().ID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.List(orders, len(orders), nil)
}

func (oc *OrderController) Show(c *ctx.Context) {
	order, err := oc.orders.GetOrder(c.Context(), c.Param("id"), c.Identity())
	respond(c, order, err)
}

func (oc *OrderController) Pay(c *ctx.Context) {
	intent, err := oc.orders.CreatePaymentIntent(c.Context(), c.Param("id"), c.Identity())
	respond(c, intent, err)
}

func (oc *OrderController) Index(c *ctx.Context) {
	page, err := oc.orders.ListOrders(c.Context(), c.QueryValues())
	list(c, page, err)
}

func (oc *OrderController) UpdateStatus(c *ctx.Context) {
	var in struct {
		Status string `json:"status" validate:"required,in=pending|processing|shipped|delivered|cancelled"`
	}
	if !c.BindJSON(&in) {
		return
	}
	order, err := oc.orders.UpdateStatus(c.Context(), c.Param("id"), in.Status)
	respond(c, order, err)
}

// Webhook receives payment gateway events. The raw body is needed for the
// signature check.
func (oc *OrderController) Webhook(c *ctx.Context) {
	body, err := c.Body(webhookBodyLimit)
	if err != nil {
		c.Fail(apperr.Validation("Webhook Error: %s", err.Error()))
		return
	}
	if err := oc.orders.HandlePaymentWebhook(c.Context(), body, c.Header(payment.SignatureHeader)); err != nil {
		c.Fail(err)
		return
	}
	c.JSON(http.StatusOK, map[string]bool{"received": true})
}
