package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/studio/app/services"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/calendly"
	"github.com/shashiranjanraj/studio/pkg/ctx"
)

type BookingController struct {
	bookings *services.BookingService
}

func NewBookingController(bookings *services.BookingService) *BookingController {
	return &BookingController{bookings: bookings}
}

func (bc *BookingController) Store(c *ctx.Context) {
	var in services.BookingInput
	if !c.BindJSON(&in) {
		return
	}
	b, err := bc.bookings.CreateBooking(c.Context(), c.Identity().ID, in)
	created(c, b, err)
}

func (bc *BookingController) MyBookings(c *ctx.Context) {
	bookings, err := bc.bookings.MyBookings(c.Context(), c.Identity().ID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.List(bookings, len(bookings), nil)
}

func (bc *BookingController) Index(c *ctx.Context) {
	page, err := bc.bookings.ListBookings(c.Context(), c.QueryValues())
	list(c, page, err)
}

func (bc *BookingController) Show(c *ctx.Context) {
	b, err := bc.bookings.GetBooking(c.Context(), c.Param("id"), c.Identity())
	respond(c, b, err)
}

func (bc *BookingController) Update(c *ctx.Context) {
	var in services.BookingUpdate
	if !c.DecodeJSON(&in) {
		return
	}
	b, err := bc.bookings.UpdateBooking(c.Context(), c.Param("id"), c.Identity(), in)
	respond(c, b, err)
}

func (bc *BookingController) Cancel(c *ctx.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	if c.R.ContentLength > 0 && !c.DecodeJSON(&in) {
		return
	}
	b, err := bc.bookings.CancelBooking(c.Context(), c.Param("id"), c.Identity(), in.Reason)
	respond(c, b, err)
}

func (bc *BookingController) AssignPhotographer(c *ctx.Context) {
	var in struct {
		PhotographerID string `json:"photographerId" validate:"required"`
	}
	if !c.BindJSON(&in) {
		return
	}
	b, err := bc.bookings.AssignPhotographer(c.Context(), c.Param("id"), in.PhotographerID)
	respond(c, b, err)
}

func (bc *BookingController) UpdateStatus(c *ctx.Context) {
	var in struct {
		Status string `json:"status" validate:"required,in=pending|confirmed|completed|cancelled"`
	}
	if !c.BindJSON(&in) {
		return
	}
	b, err := bc.bookings.UpdateStatus(c.Context(), c.Param("id"), c.Identity(), in.Status)
	respond(c, b, err)
}

// Webhook receives scheduling-service invitee events.
func (bc *BookingController) Webhook(c *ctx.Context) {
	body, err := c.Body(webhookBodyLimit)
	if err != nil {
		c.Fail(apperr.Validation("Webhook Error: %s", err.Error()))
		return
	}
	if err := bc.bookings.HandleCalendarWebhook(c.Context(), body, c.Header(calendly.SignatureHeader)); err != nil {
		c.Fail(err)
		return
	}
	c.JSON(http.StatusOK, map[string]bool{"received": true})
}
