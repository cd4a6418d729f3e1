package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neoShop/config"
	"neoShop/handlers"
	"neoShop/repository"
	"neoShop/services"
	"neoShop/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("neoshop stopped", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func buildHandler(st storage.Storage, cfg *config.Config) (*handlers.Handler, error) {
	uR, err := repository.NewUserRepository(st)
	if err != nil {
		return nil, fmt.Errorf("user repository: %w", err)
	}
	sR, err := repository.NewSessionRepository(st)
	if err != nil {
		return nil, fmt.Errorf("session repository: %w", err)
	}
	pR, err := repository.NewProductRepository(st)
	if err != nil {
		return nil, fmt.Errorf("product repository: %w", err)
	}
	fR, err := repository.NewFavoriteRepository(st)
	if err != nil {
		return nil, fmt.Errorf("favorite repository: %w", err)
	}
	cartR, err := repository.NewCartRepository(st)
	if err != nil {
		return nil, fmt.Errorf("cart repository: %w", err)
	}
	oR, err := repository.NewOrderRepository(st)
	if err != nil {
		return nil, fmt.Errorf("order repository: %w", err)
	}
	nR, err := repository.NewNotificationRepository(st)
	if err != nil {
		return nil, fmt.Errorf("notification repository: %w", err)
	}

	tokens, err := services.NewTokenIssuer(cfg.TokenSecret)
	if err != nil {
		return nil, err
	}
	notifs := services.NewNotificationService(nR)
	carts := services.NewCartService(pR, cartR)
	hp := handlers.HandlerParams{
		UsrService:   services.NewUserService(uR, sR, notifs, tokens, cfg.AdminEmailPrefix),
		PrdService:   services.NewProductService(pR, fR, cartR, notifs),
		CatsService:  services.NewCategoryService(pR),
		FavService:   services.NewFavoriteService(pR, fR),
		CrtService:   carts,
		OrdService:   services.NewOrderService(oR, carts, notifs),
		NotifService: notifs,
		DashService:  services.NewDashboardService(pR, oR, uR),
	}
	return handlers.NewHandler(hp), nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogger(cfg)

	openCtx, cancelOpen := context.WithTimeout(context.Background(), cfg.StorageTimeout)
	st, err := storage.Open(openCtx, cfg.StorageOptions())
	cancelOpen()
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer st.Close()
	slog.Info("storage connected", "driver", cfg.StorageDriver)

	ha, err := buildHandler(st, cfg)
	if err != nil {
		return err
	}
	router := handlers.NewRouter(handlers.RouterParams{
		Handler:        ha,
		Limiter:        handlers.NewLoginLimiter(cfg.LoginRateLimit, cfg.LoginBurst),
		RequestTimeout: cfg.StorageTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-quit:
	}

	slog.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
