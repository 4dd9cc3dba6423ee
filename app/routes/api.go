package routes

import (
	"github.com/shashiranjanraj/studio/app/controllers"
	"github.com/shashiranjanraj/studio/pkg/ctx"
	"github.com/shashiranjanraj/studio/pkg/middleware"
	"github.com/shashiranjanraj/studio/pkg/rbac"
	"github.com/shashiranjanraj/studio/pkg/router"
)

// Controllers are the handlers the API is built from.
type Controllers struct {
	Auth     *controllers.AuthController
	Images   *controllers.ImageController
	Products *controllers.ProductController
	Orders   *controllers.OrderController
	Bookings *controllers.BookingController
	Import   *controllers.ImportController
}

// RegisterAPI mounts every /api route. resolve backs the Protect middleware.
func RegisterAPI(r *router.Router, c Controllers, resolve middleware.IdentityResolver) {
	protect := middleware.Protect(resolve)
	admin := rbac.Admin()

	api := r.Group("/api")

	// ── Auth ────────────────────────────────────────────────────────────────
	authGroup := api.Group("/auth")
	authGroup.Post("/register", "auth.register", ctx.Wrap(c.Auth.Register))
	authGroup.Post("/login", "auth.login", ctx.Wrap(c.Auth.Login))
	authGroup.Get("/logout", "auth.logout", ctx.Wrap(c.Auth.Logout))
	authGroup.Post("/forgotpassword", "auth.forgot", ctx.Wrap(c.Auth.ForgotPassword))
	authGroup.Put("/resetpassword/{token}", "auth.reset", ctx.Wrap(c.Auth.ResetPassword))

	me := authGroup.Group("", protect)
	me.Get("/me", "auth.me", ctx.Wrap(c.Auth.Me))
	me.Put("/updatedetails", "auth.details", ctx.Wrap(c.Auth.UpdateDetails))
	me.Put("/updatepassword", "auth.password", ctx.Wrap(c.Auth.UpdatePassword))
	me.Put("/users/{id}/photographer", "auth.photographer", ctx.Wrap(c.Auth.SetPhotographer), admin)

	// ── Images ──────────────────────────────────────────────────────────────
	images := api.Group("/images")
	images.Get("", "images.index", ctx.Wrap(c.Images.Index))
	images.Get("/featured", "images.featured", ctx.Wrap(c.Images.Featured))
	images.Get("/portfolio", "images.portfolio", ctx.Wrap(c.Images.Portfolio))
	images.Get("/{id}", "images.show", ctx.Wrap(c.Images.Show))
	images.Post("", "images.store", ctx.Wrap(c.Images.Store), protect)
	images.Put("/{id}", "images.update", ctx.Wrap(c.Images.Update), protect)
	images.Delete("/{id}", "images.destroy", ctx.Wrap(c.Images.Destroy), protect)

	// ── Products ────────────────────────────────────────────────────────────
	products := api.Group("/products")
	products.Get("", "products.index", ctx.Wrap(c.Products.Index))
	products.Get("/{id}", "products.show", ctx.Wrap(c.Products.Show))
	manage := products.Group("", protect, admin)
	manage.Post("", "products.store", ctx.Wrap(c.Products.Store))
	manage.Put("/{id}", "products.update", ctx.Wrap(c.Products.Update))
	manage.Delete("/{id}", "products.destroy", ctx.Wrap(c.Products.Destroy))

	// ── Orders ──────────────────────────────────────────────────────────────
	api.Post("/orders/webhook", "orders.webhook", ctx.Wrap(c.Orders.Webhook))
	orders := api.Group("/orders", protect)
	orders.Post("", "orders.store", ctx.Wrap(c.Orders.Store))
	orders.Get("/myorders", "orders.mine", ctx.Wrap(c.Orders.MyOrders))
	orders.Get("/{id}", "orders.show", ctx.Wrap(c.Orders.Show))
	orders.Post("/{id}/pay", "orders.pay", ctx.Wrap(c.Orders.Pay))
	orders.Get("", "orders.index", ctx.Wrap(c.Orders.Index), admin)
	orders.Put("/{id}/status", "orders.status", ctx.Wrap(c.Orders.UpdateStatus), admin)

	// ── Bookings ────────────────────────────────────────────────────────────
	api.Post("/bookings/webhook", "bookings.webhook", ctx.Wrap(c.Bookings.Webhook))
	bookings := api.Group("/bookings", protect)
	bookings.Post("", "bookings.store", ctx.Wrap(c.Bookings.Store))
	bookings.Get("/mybookings", "bookings.mine", ctx.Wrap(c.Bookings.MyBookings))
	bookings.Get("", "bookings.index", ctx.Wrap(c.Bookings.Index), admin)
	bookings.Get("/{id}", "bookings.show", ctx.Wrap(c.Bookings.Show))
	bookings.Put("/{id}", "bookings.update", ctx.Wrap(c.Bookings.Update))
	bookings.Put("/{id}/cancel", "bookings.cancel", ctx.Wrap(c.Bookings.Cancel))
	bookings.Put("/{id}/photographer", "bookings.photographer", ctx.Wrap(c.Bookings.AssignPhotographer), admin)
	bookings.Put("/{id}/status", "bookings.status", ctx.Wrap(c.Bookings.UpdateStatus), admin)

	// ── Import ──────────────────────────────────────────────────────────────
	api.Post("/import", "import.store", ctx.Wrap(c.Import.Store), protect, admin)
}
