package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"loft/docs" //this is required to generate swagger docs
	"loft/internal/auth"
	"loft/internal/domain/accesscontrol"
	"loft/internal/domain/bookings"
	"loft/internal/domain/storage"
	"loft/internal/mailer"
	"loft/internal/notifications"
	"loft/internal/ratelimiter"

	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	bookings      *bookings.Service
	logger        *zap.SugaredLogger
	cld           *cloudinary.Cloudinary
	mailer        mailer.Client
	push          notifications.PushSender
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
}

type config struct {
	addr              string
	db                dbConfig
	env               string
	apiURL            string
	mail              mailConfig
	frontendURL       string
	auth              authConfig
	rateLimiter       ratelimiter.Config
	bookingWindowDays int
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}
type tokenConfig struct {
	refreshSecret   string
	secret          string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}
type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	exp       time.Duration
	fromEmail string
	mailtrap  mailTrapConfig
}

type mailTrapConfig struct {
	apiKey string
}

type dbConfig struct {
	addr        string
	maxConns    int
	maxIdleTime string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		// Public routes
		r.Route("/authentication", func(r chi.Router) {
			r.Post("/user", app.registerUserHandler)
			r.Post("/token", app.createTokenHandler)
			r.Post("/refresh", app.refreshTokenHandler)
			r.Post("/forgot-password", app.forgotPasswordHandler)
			r.Post("/reset-password", app.resetPasswordHandler)
		})

		// Route that does NOT require authentication
		r.Put("/users/activate/{token}", app.activateUserHandler)

		// Public catalog and pricing
		r.Get("/products", app.listProductsHandler)
		r.Get("/services", app.listServicesHandler)
		r.Get("/products/{productID}/images", app.listProductImagesHandler)
		r.Post("/quote", app.quoteHandler)
		r.Get("/availability", app.getAvailabilityHandler)

		r.Route("/users", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Put("/", app.updateUserHandler)
			r.Post("/profile-picture", app.uploadProfilePictureHandler)
			r.Post("/logout", app.logoutHandler)
			r.Post("/push-tokens", app.savePushTokenHandler)
			r.Delete("/push-tokens", app.removePushTokenHandler)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/", app.createBookingHandler)
			r.Get("/mine", app.myBookingsHandler)
			r.Get("/{bookingID}", app.getBookingHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(app.RequireRoles(accesscontrol.DecisionRoles...))
				r.Get("/bookings", app.adminListBookingsHandler)
				r.Post("/bookings/{bookingID}/approve", app.approveBookingHandler)
				r.Post("/bookings/{bookingID}/decline", app.declineBookingHandler)
				r.Post("/bookings/{bookingID}/payment", app.markBookingPaidHandler)
				r.Delete("/availability/{date}/{slot}", app.freeSlotHandler)
			})

			r.Group(func(r chi.Router) {
				r.Use(app.RequireRoles(accesscontrol.CatalogRoles...))
				r.Post("/products", app.createProductHandler)
				r.Patch("/products/{productID}", app.updateProductHandler)
				r.Delete("/products/{productID}", app.deleteProductHandler)
				r.Put("/products/order", app.reorderProductsHandler)
				r.Get("/rate-card", app.getRateCardHandler)
				r.Put("/rate-card", app.updateRateCardHandler)
				r.Post("/services", app.createServiceHandler)
				r.Patch("/services/{serviceID}", app.updateServiceHandler)
				r.Delete("/services/{serviceID}", app.deleteServiceHandler)
			})

			r.Group(func(r chi.Router) {
				r.Use(app.RequireRoles(accesscontrol.MediaRoles...))
				r.Post("/products/{productID}/images", app.uploadProductImageHandler)
				r.Delete("/products/{productID}/images/{imageID}", app.deleteProductImageHandler)
			})

			r.Group(func(r chi.Router) {
				r.Use(app.RequireRoles(accesscontrol.RoleAdmin))
				r.Get("/users/{userID}/roles", app.adminGetUserRolesHandler)
				r.Post("/users/{userID}/roles", app.adminAssignUserRoleHandler)
				r.Delete("/users/{userID}/roles/{roleName}", app.adminRemoveUserRoleHandler)
				r.Post("/push-tokens/prune", app.pruneStaleTokensHandler)
				r.Delete("/push-tokens", app.bulkRemovePushTokensHandler)
			})
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
