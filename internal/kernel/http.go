// Package kernel wires the application: it picks the stores, connects the
// optional infrastructure (Redis, RabbitMQ, S3), builds the services and
// mounts them behind the global middleware stack.
package kernel

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shashiranjanraj/studio/app/controllers"
	"github.com/shashiranjanraj/studio/app/repositories"
	"github.com/shashiranjanraj/studio/app/repositories/memory"
	"github.com/shashiranjanraj/studio/app/routes"
	"github.com/shashiranjanraj/studio/app/services"
	"github.com/shashiranjanraj/studio/config"
	"github.com/shashiranjanraj/studio/pkg/cache"
	"github.com/shashiranjanraj/studio/pkg/calendly"
	"github.com/shashiranjanraj/studio/pkg/database"
	"github.com/shashiranjanraj/studio/pkg/event"
	"github.com/shashiranjanraj/studio/pkg/logger"
	"github.com/shashiranjanraj/studio/pkg/mail"
	"github.com/shashiranjanraj/studio/pkg/metrics"
	"github.com/shashiranjanraj/studio/pkg/middleware"
	"github.com/shashiranjanraj/studio/pkg/mq"
	"github.com/shashiranjanraj/studio/pkg/payment"
	"github.com/shashiranjanraj/studio/pkg/reqid"
	"github.com/shashiranjanraj/studio/pkg/response"
	"github.com/shashiranjanraj/studio/pkg/router"
	"github.com/shashiranjanraj/studio/pkg/storage"
)

// Options are the collaborators an App is built from. Nil integrations are
// replaced by their unconfigured production implementations.
type Options struct {
	Stores   services.Stores
	Disks    *storage.Manager
	Cache    *cache.Cache
	Bus      *event.Bus
	Gateway  services.Gateway
	Calendar services.Calendar
	Mailer   mail.Sender
	// Ping reports database health; nil means in-memory stores.
	Ping func(ctx context.Context) error
}

// App holds the wired services.
type App struct {
	Auth     *services.AuthService
	Images   *services.ImageService
	Products *services.ProductService
	Orders   *services.OrderService
	Bookings *services.BookingService
	Import   *services.ImportService

	disks   *storage.Manager
	bus     *event.Bus
	ping    func(ctx context.Context) error
	closers []func(ctx context.Context) error
}

func New(o Options) *App {
	timeout := config.ExternalTimeout()
	if o.Bus == nil {
		o.Bus = event.New()
	}
	if o.Disks == nil {
		o.Disks = storage.NewManager(storage.NewLocalDisk(config.StorageLocalRoot(), config.StorageURL()))
	}
	if o.Gateway == nil {
		o.Gateway = payment.NewStripe(config.StripeSecretKey(), config.StripeWebhookSecret(), timeout)
	}
	if o.Calendar == nil {
		o.Calendar = calendly.NewClient(config.CalendlyAPIURL(), config.CalendlyToken(), timeout)
	}
	if o.Mailer == nil {
		o.Mailer = mail.FromConfig()
	}

	s := o.Stores
	images := services.NewImageService(s.Images, o.Disks, o.Cache, o.Bus)
	return &App{
		Auth:     services.NewAuthService(s.Users, o.Mailer, config.ClientURL()),
		Images:   images,
		Products: services.NewProductService(s.Products, o.Cache),
		Orders: services.NewOrderService(s.Orders, s.Products, o.Gateway, o.Cache, o.Bus, services.OrderConfig{
			Currency: config.Currency(),
			Timeout:  timeout,
		}),
		Bookings: services.NewBookingService(s.Bookings, s.Users, o.Calendar, o.Bus, config.CalendlyWebhookSecret()),
		Import:   services.NewImportService(images, s.Users, timeout),
		disks:    o.Disks,
		bus:      o.Bus,
		ping:     o.Ping,
	}
}

// MemoryStores returns a fresh set of in-process stores.
func MemoryStores() services.Stores {
	return services.Stores{
		Users:    memory.NewUserStore(),
		Images:   memory.NewImageStore(),
		Products: memory.NewProductStore(),
		Orders:   memory.NewOrderStore(),
		Bookings: memory.NewBookingStore(),
	}
}

func mongoStores(m *database.Mongo) services.Stores {
	return services.Stores{
		Users:    repositories.NewUserRepository(m.DB),
		Images:   repositories.NewImageRepository(m.DB),
		Products: repositories.NewProductRepository(m.DB),
		Orders:   repositories.NewOrderRepository(m.DB),
		Bookings: repositories.NewBookingRepository(m.DB),
	}
}

// Boot connects everything configured in the environment. MongoDB is used
// when MONGO_URI is set; Redis, RabbitMQ and S3 are optional and the app
// runs without them.
func Boot(ctx context.Context) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}

	var (
		o       Options
		closers []func(context.Context) error
	)

	if uri := config.MongoURI(); uri != "" {
		m, err := database.Connect(ctx, uri, config.MongoDatabase())
		if err != nil {
			return nil, err
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			_ = m.Close(ctx)
			return nil, err
		}
		o.Stores, o.Ping = mongoStores(m), m.Ping
		closers = append(closers, m.Close)
	} else {
		logger.Warn("MONGO_URI not set, using in-memory stores")
		o.Stores = MemoryStores()
	}

	if addr := config.RedisAddr(); addr != "" {
		c, err := cache.Connect(ctx, addr, config.RedisPassword(), "studio:")
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", "error", err)
		} else {
			closers = append(closers, func(context.Context) error { return c.Close() })
		}
		o.Cache = c
	}

	disks, err := storage.FromConfig(ctx)
	if err != nil {
		logger.Warn("s3 disk unavailable, storing images locally", "error", err)
	}
	o.Disks = disks

	o.Bus = event.New()
	if url := config.AMQPURL(); url != "" {
		pub, err := mq.NewPublisher(url, mq.Exchange)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events stay in-process", "error", err)
		} else {
			mq.Forward(o.Bus, pub, config.ExternalTimeout(),
				event.OrderCreated, event.OrderPaid, event.OrderStatus,
				event.BookingCreated, event.BookingCancelled, event.ImageUploaded)
			closers = append(closers, func(context.Context) error { return pub.Close() })
		}
	}

	a := New(o)
	a.closers = closers
	return a, nil
}

// Close waits for pending event listeners, then releases connections in
// reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	a.bus.Wait()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Router registers every route on a fresh router.
func (a *App) Router() *router.Router {
	r := router.New()

	// Global middleware stack (outermost first). Metrics sees the full
	// latency, recovery runs before anything can panic, and the request id
	// exists before the logger reads it.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(config.Get("CORS_ORIGIN", config.ClientURL()))))
	r.Use(middleware.RateLimit(200, time.Minute))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", "health", a.health)
	r.Get("/metrics", "metrics", metrics.Handler())
	if local, ok := a.disks.Local(); ok {
		r.Mount("/storage", "storage", http.StripPrefix("/storage", http.FileServer(http.Dir(local.Root()))))
	}

	routes.RegisterAPI(r, routes.Controllers{
		Auth:     controllers.NewAuthController(a.Auth),
		Images:   controllers.NewImageController(a.Images),
		Products: controllers.NewProductController(a.Products),
		Orders:   controllers.NewOrderController(a.Orders),
		Bookings: controllers.NewBookingController(a.Bookings),
		Import:   controllers.NewImportController(a.Import),
	}, a.Auth.Resolve)
	return r
}

func (a *App) Handler() http.Handler { return a.Router().Handler() }

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	db := "memory"
	if a.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ping(ctx); err != nil {
			logger.WithCtx(r.Context()).Error("health: database ping failed", "error", err)
			response.JSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "database": "down"})
			return
		}
		db = "up"
	}
	response.Success(w, map[string]string{"status": "ok", "database": db})
}
