package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/safakhou/helpbot/config"
	"github.com/safakhou/helpbot/internal/kb"
	"github.com/safakhou/helpbot/internal/slack"
	"github.com/safakhou/helpbot/internal/telemetry"
)

// Run wires the full bot and serves until SIGINT/SIGTERM. In-flight
// background searches are drained before the process exits.
func Run(cfg *config.Config) error {
	if err := cfg.Slack.RequireCredentials(); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.New()
	}

	ctx := context.Background()
	searcher, rdb, err := kb.BuildSearcher(ctx, cfg, log.New(log.Writer(), "[SEARCH] ", log.LstdFlags), metrics)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	client := slack.NewClient(cfg.Slack.BotToken, cfg.Slack.APIBaseURL, cfg.Slack.Timeout, nil)
	runner := NewRunner(nil)
	handler := NewSlackHandler(
		slack.NewVerifier(cfg.Slack.SigningSecret),
		searcher,
		client,
		runner,
		cfg.Slack.Command,
		taskBudget(cfg),
		metrics,
		nil,
	)
	handler.Register(e)

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	if cfg.Warm.Enabled {
		sched := NewWarmScheduler(searcher, cfg.Warm.Schedule, rdb, nil)
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(cfg.General.Listen); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		baseLogger.Printf("received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		baseLogger.Printf("shutdown: %v", err)
	}
	runner.Wait()
	return nil
}

// taskBudget bounds one background search plus its Slack replies: every
// article fetch, every politeness delay, and the outbound posts.
func taskBudget(cfg *config.Config) time.Duration {
	perArticle := cfg.KB.FetchDelay + cfg.KB.FetchTimeout
	return time.Duration(cfg.KB.MaxArticles+1)*perArticle + 2*cfg.Slack.Timeout
}
