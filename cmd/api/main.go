// Package main is the Divvy API server.
//
//	@title			Divvy API
//	@version		1.0
//	@description	Group membership and collaboration API for the Divvy app.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/alhamdi/divvy/docs"
	"github.com/alhamdi/divvy/internal/config"
	"github.com/alhamdi/divvy/internal/database"
	"github.com/alhamdi/divvy/internal/group"
	"github.com/alhamdi/divvy/internal/invitation"
	"github.com/alhamdi/divvy/internal/membership"
	"github.com/alhamdi/divvy/internal/notification"
	"github.com/alhamdi/divvy/internal/user"
	"github.com/alhamdi/divvy/pkg/deeplink"
	"github.com/alhamdi/divvy/pkg/logging"
	mw "github.com/alhamdi/divvy/pkg/middleware"
	"github.com/alhamdi/divvy/pkg/ratelimit"
)

// memberDirectory defers the group feature's view of the membership service
// until both are constructed
type memberDirectory struct {
	svc *membership.Service
}

func (d *memberDirectory) BootstrapOwner(ctx context.Context, groupID, userID int64) error {
	return d.svc.BootstrapOwner(ctx, groupID, userID)
}

func (d *memberDirectory) IsActiveOwner(ctx context.Context, groupID, userID int64) (bool, error) {
	return d.svc.IsActiveOwner(ctx, groupID, userID)
}

// deactivationHook defers the user feature's view of the succession
// controller until both are constructed
type deactivationHook struct {
	succession *membership.Succession
}

func (h *deactivationHook) HandleAccountDeactivation(ctx context.Context, userID int64) error {
	return h.succession.HandleAccountDeactivation(ctx, userID)
}

func main() {
	logger := logging.New("api")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	logger.Info().Msg("connected to database")

	// Invitation token store and invite rate limiter. Redis-backed when an
	// address is configured, in-process otherwise.
	var (
		tokenStore  invitation.Store
		tokenPurger invitation.Purger
		limiter     ratelimit.Limiter
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		defer client.Close()

		store := invitation.NewRedisStore(client)
		tokenStore, tokenPurger = store, store
		limiter = ratelimit.NewRedisLimiter(client, cfg.InviteRatePerHour)

		logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis invitation store")
	} else {
		store := invitation.NewMemoryStore()
		tokenStore, tokenPurger = store, store
		limiter = ratelimit.NewMemoryLimiter(cfg.InviteRatePerHour)

		logger.Info().Msg("using in-process invitation store")
	}

	// Notification feature
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationService)

	dispatcher := notification.NewDispatcher(
		notificationService,
		notification.NewLogEmailSender(logging.New("email")),
		notification.NewLogPushSender(logging.New("push")),
		notification.NoDeviceTokens{},
		logging.New("notify"),
	)

	// User feature. The deactivation hook is filled in once the succession
	// controller exists.
	hook := &deactivationHook{}
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, hook, logging.New("user"))
	userHandler := user.NewHandler(userService)

	// Group feature. The member directory is filled in once the membership
	// service exists.
	members := &memberDirectory{}
	groupRepo := group.NewRepository(db)
	groupService := group.NewService(groupRepo, members)

	// Membership feature
	membershipRepo := membership.NewRepository(db)
	validator := membership.NewValidator(membershipRepo, membership.Limits{
		MaxGroupsPerUser:   cfg.MaxGroupsPerUser,
		MaxMembersPerGroup: cfg.MaxMembersPerGroup,
	})
	links := deeplink.NewBuilder(cfg.AppBaseURL)
	membershipService := membership.NewService(
		membershipRepo,
		validator,
		userService,
		groupService,
		tokenStore,
		dispatcher,
		limiter,
		links,
		cfg.InviteTTL,
		logging.New("membership"),
	)
	succession := membership.NewSuccession(membershipRepo, groupService, userService, dispatcher, logging.New("succession"))
	membershipHandler := membership.NewHandler(membershipService, succession)

	members.svc = membershipService
	hook.succession = succession

	groupHandler := group.NewHandler(groupService, membershipHandler.RegisterGroupRoutes)

	// Advisory cleanup of expired invitation tokens
	sweeper := invitation.NewSweeper(tokenPurger, time.Hour, logging.New("sweeper"))
	go sweeper.Run(ctx)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(mw.TestUserMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/users", userHandler.Routes())
		r.Mount("/groups", groupHandler.Routes())
		r.Mount("/invitations", membershipHandler.InvitationRoutes())
		r.Mount("/notifications", notificationHandler.Routes())
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	// Let in-flight notification deliveries finish
	dispatcher.Wait()
}
