package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"retrieval-engine/internal/adapter/httpapi"
	"retrieval-engine/internal/di"
	"retrieval-engine/internal/infra/config"
	"retrieval-engine/internal/infra/logger"
)

func main() {
	// Best effort; production runs without a .env file.
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.New()
	slog.SetDefault(log)

	container, err := di.New(context.Background(), cfg, log)
	if err != nil {
		log.Error("startup_failed", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(httpapi.RequestScope(logger.NewContextLogger(log, "retrieval-engine")))
	e.Use(middleware.Recover())

	handler := httpapi.NewHandler(
		container.SearchUsecase,
		container.ContentsUsecase,
		container.SimilarUsecase,
		container.AnswerUsecase,
	)

	var mw []echo.MiddlewareFunc
	if cfg.APIToken != "" {
		mw = append(mw, httpapi.BearerAuth(cfg.APIToken))
	} else {
		log.Warn("api_token_not_set")
	}
	mw = append(mw, httpapi.WorkspaceRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	handler.Register(e, mw...)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if err := container.Pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting_server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
