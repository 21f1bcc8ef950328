package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-intake/cron"
	"github.com/goliatone/go-intake/flow"
	"github.com/goliatone/go-intake/gateway"
	"github.com/goliatone/go-intake/httpapi"
	"github.com/goliatone/go-intake/runner"
	"github.com/goliatone/go-intake/session"
	backend "github.com/redis/go-redis/v9"
)

type ServeCmd struct {
	Addr   string `help:"Listen address." default:":8080" env:"INTAKE_ADDR"`
	Config string `help:"Machine config file." type:"existingfile" env:"INTAKE_MACHINE_CONFIG"`
	Debug  bool   `help:"Allow DEBUG_OVERRIDE_STATE." env:"INTAKE_DEBUG"`

	Store       string        `help:"Session store." default:"memory" enum:"memory,sqlite,redis" env:"INTAKE_STORE"`
	SQLiteDSN   string        `name:"sqlite-dsn" help:"SQLite DSN." default:"file:intake.db?_busy_timeout=5000" env:"INTAKE_SQLITE_DSN"`
	RedisAddr   string        `help:"Redis address." default:"localhost:6379" env:"INTAKE_REDIS_ADDR"`
	RedisPrefix string        `help:"Redis key prefix." default:"intake:session:" env:"INTAKE_REDIS_PREFIX"`
	RedisTTL    time.Duration `name:"redis-ttl" help:"Redis session TTL." default:"24h" env:"INTAKE_REDIS_TTL"`

	SentinelURL     string `help:"Backend data gateway base URL. Empty uses a fake with no history." env:"INTAKE_SENTINEL_URL"`
	SentinelToken   string `help:"Backend data gateway bearer token." env:"INTAKE_SENTINEL_TOKEN"`
	SubmissionURL   string `help:"Submission gateway base URL. Empty records tickets in memory." env:"INTAKE_SUBMISSION_URL"`
	SubmissionToken string `help:"Submission gateway bearer token." env:"INTAKE_SUBMISSION_TOKEN"`

	EffectTimeout time.Duration `help:"Timeout of one side effect attempt." default:"15s" env:"INTAKE_EFFECT_TIMEOUT"`
	EffectRetries int           `help:"Retries of a failed side effect." default:"2" env:"INTAKE_EFFECT_RETRIES"`

	JanitorCron string        `help:"Cron expression of the idle session sweep. Empty disables it." default:"@every 10m" env:"INTAKE_JANITOR_CRON"`
	IdleTTL     time.Duration `name:"idle-ttl" help:"Sessions idle longer than this are deleted." default:"2h" env:"INTAKE_IDLE_TTL"`
}

type closer func() error

func (c ServeCmd) openStore(ctx context.Context) (session.Store, closer, error) {
	switch c.Store {
	case "sqlite":
		store, err := session.OpenSQLiteStore(ctx, c.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "redis":
		client := backend.NewClient(&backend.Options{Addr: c.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		store := session.NewRedisStore(client, session.WithRedisPrefix(c.RedisPrefix), session.WithRedisTTL(c.RedisTTL))
		return store, client.Close, nil
	default:
		return session.NewMemoryStore(), func() error { return nil }, nil
	}
}

func (c ServeCmd) gateways(logger flow.Logger, catalog *flow.Catalog) (session.SentinelQuerier, session.Submitter) {
	var sentinel session.SentinelQuerier = &gateway.StaticSentinel{Catalog: catalog}
	if c.SentinelURL != "" {
		sentinel = gateway.NewSentinelClient(c.SentinelURL,
			gateway.WithToken(c.SentinelToken),
			gateway.WithCatalog(catalog),
			gateway.WithLogger(logger),
		)
	} else {
		logger.Warn("no sentinel url configured, device history lookups return nothing")
	}

	var submitter session.Submitter = &gateway.RecordingSubmitter{}
	if c.SubmissionURL != "" {
		submitter = gateway.NewSubmissionClient(c.SubmissionURL,
			gateway.WithToken(c.SubmissionToken),
			gateway.WithCatalog(catalog),
			gateway.WithLogger(logger),
		)
	} else {
		logger.Warn("no submission url configured, tickets are kept in memory")
	}
	return sentinel, submitter
}

func (c ServeCmd) Run(rt *runtime) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := rt.logger

	store, closeStore, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	opts, err := machineOptions(c.Config)
	if err != nil {
		return err
	}
	metrics := httpapi.NewMetrics()
	catalog := flow.DefaultCatalog()
	machine := flow.NewMachine(append(opts,
		flow.WithLogger(logger),
		flow.WithCatalog(catalog),
		flow.WithTransitionHooks(metrics),
	)...)

	sentinel, submitter := c.gateways(logger, catalog)
	host := session.NewHost(
		session.WithStore(store),
		session.WithMachine(machine),
		session.WithSentinel(sentinel),
		session.WithSubmitter(submitter),
		session.WithLogger(logger),
		session.WithEffectObserver(metrics),
		session.WithRunner(runner.NewHandler(
			runner.WithTimeout(c.EffectTimeout),
			runner.WithMaxRetries(c.EffectRetries),
			runner.WithRetryStrategy(runner.ExponentialBackoffStrategy{
				Base:   200 * time.Millisecond,
				Factor: 2,
				Max:    2 * time.Second,
			}),
			runner.WithLogger(logger),
		)),
	)

	scheduler := cron.NewScheduler(
		cron.WithLogger(logger),
		cron.WithErrorHandler(func(err error) { logger.Error("scheduled job failed: %v", err) }),
	)
	if c.JanitorCron != "" {
		if _, err := cron.ScheduleJanitor(scheduler, host, c.JanitorCron, c.IdleTTL); err != nil {
			return err
		}
	}
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	srv := &http.Server{
		Addr: c.Addr,
		Handler: httpapi.NewHandler(host,
			httpapi.WithLogger(logger),
			httpapi.WithMetrics(metrics),
			httpapi.WithCatalog(catalog),
			httpapi.WithDebug(c.Debug),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("intake listening addr=%s store=%s", c.Addr, c.Store)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("intake shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
