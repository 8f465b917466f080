package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	attendeehandler "rollcall/internal/attendees/handler"
	attendeeservice "rollcall/internal/attendees/service"
	attendeestore "rollcall/internal/attendees/store"
	"rollcall/internal/audit"
	auditkafka "rollcall/internal/audit/kafka"
	auditmemory "rollcall/internal/audit/memory"
	badgehandler "rollcall/internal/badge/handler"
	badgeservice "rollcall/internal/badge/service"
	"rollcall/internal/checkin"
	checkinhandler "rollcall/internal/checkin/handler"
	eventhandler "rollcall/internal/events/handler"
	eventservice "rollcall/internal/events/service"
	eventstore "rollcall/internal/events/store"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/httpserver"
	"rollcall/internal/platform/kafka"
	"rollcall/internal/platform/logger"
	"rollcall/internal/platform/metrics"
	"rollcall/internal/platform/postgres"
	"rollcall/internal/platform/redis"
	presencehandler "rollcall/internal/presence/handler"
	presenceservice "rollcall/internal/presence/service"
	"rollcall/internal/realtime"
	"rollcall/internal/realtime/pgfeed"
	"rollcall/internal/realtime/redisfeed"
	"rollcall/internal/token"
	httptransport "rollcall/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

type eventStore interface {
	eventservice.Store
	attendeeservice.EventStore
	presenceservice.EventStore
}

type attendeeStore interface {
	attendeeservice.Store
	checkin.Store
	presenceservice.Store
	badgeservice.Store
}

// infra holds the optional backing services and what must be closed on exit.
type infra struct {
	db      *sql.DB
	redis   *redis.Client
	kafka   *kgo.Client
	closers []func()
}

func (i *infra) close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	in, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.close()

	m := metrics.New()
	hub := realtime.NewHub(cfg.Realtime.SubscriberBuf, realtime.NewMetrics())
	codec, err := token.NewCodec(cfg.PublicOrigin)
	if err != nil {
		return err
	}

	var sink audit.Sink = auditmemory.NewSink()
	if in.kafka != nil {
		sink = auditkafka.NewSink(in.kafka, cfg.Kafka.AuditTopic)
	}
	auditor := audit.NewPublisher(sink,
		audit.WithAsyncBuffer(1024),
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics()),
	)
	defer auditor.Close()

	events, attendees := stores(cfg, in, hub, log)

	g, gctx := errgroup.WithContext(ctx)
	switch cfg.Realtime.Backend {
	case config.RealtimePostgres:
		feed := pgfeed.New(cfg.Postgres.URL, postgres.ChangeChannel, hub, log)
		g.Go(func() error { return feed.Run(gctx) })
	case config.RealtimeRedis:
		relay := redisfeed.NewRelay(in.redis.Client, cfg.Realtime.Channel, hub, log)
		g.Go(func() error { return relay.Run(gctx) })
	}

	eventSvc := eventservice.New(events,
		eventservice.WithLogger(log),
		eventservice.WithAuditPublisher(auditor),
	)
	attendeeSvc := attendeeservice.New(attendees, events, codec, hub,
		attendeeservice.WithLogger(log),
		attendeeservice.WithAuditPublisher(auditor),
	)
	checkinSvc := checkin.NewService(attendees,
		checkin.WithLogger(log),
		checkin.WithMetrics(checkin.NewMetrics()),
		checkin.WithAuditPublisher(auditor),
	)
	presenceSvc := presenceservice.New(attendees, events, hub, presenceservice.WithLogger(log))
	badgeSvc := badgeservice.New(attendees, hub, badgeservice.WithLogger(log))

	health := httptransport.NewHealth()
	if in.db != nil {
		health.Add("postgres", in.db.PingContext)
	}
	if in.redis != nil {
		health.Add("redis", in.redis.Health)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   m,
		Health:    health,
		Events:    eventhandler.New(eventSvc, log),
		Attendees: attendeehandler.New(attendeeSvc, log, m),
		Badges:    badgehandler.New(badgeSvc, log, m).Routes,
		CheckIn:   checkinhandler.New(checkinSvc, cfg.Scanner, log),
		Presence:  presencehandler.New(presenceSvc, log, m),
	})
	srv := httpserver.New(cfg.Addr, router)
	// Open streams end when shutdown begins instead of holding it up.
	srv.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		log.Info("starting rollcall", "addr", cfg.Addr, "realtime", cfg.Realtime.Backend, "public_origin", cfg.PublicOrigin)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// connect opens the backing services the configuration asks for.
func connect(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}
	fail := func(err error) (*infra, error) {
		in.close()
		return nil, err
	}

	if cfg.Postgres.URL != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return fail(err)
		}
		in.db = db
		in.closers = append(in.closers, func() { _ = db.Close() })
		log.Info("postgres connected")
	}
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	if rdb != nil {
		in.redis = rdb
		in.closers = append(in.closers, func() { _ = rdb.Close() })
		log.Info("redis connected")
	}
	kc, err := kafka.NewClient(ctx, cfg.Kafka)
	if err != nil {
		return fail(err)
	}
	if kc != nil {
		in.kafka = kc
		in.closers = append(in.closers, kc.Close)
		log.Info("kafka connected", "topic", cfg.Kafka.AuditTopic)
	}
	return in, nil
}

// stores picks the storage backend and who publishes attendee changes: the
// database trigger in postgres mode, the store itself otherwise.
func stores(cfg config.Server, in *infra, hub *realtime.Hub, log *slog.Logger) (eventStore, attendeeStore) {
	var publisher realtime.Publisher = hub
	switch cfg.Realtime.Backend {
	case config.RealtimeRedis:
		publisher = redisfeed.NewPublisher(in.redis.Client, cfg.Realtime.Channel)
	case config.RealtimePostgres:
		publisher = nil
	}

	if in.db == nil {
		return eventstore.NewInMemory(), attendeestore.NewInMemory(publisher, log)
	}
	var opts []attendeestore.PostgresOption
	if publisher != nil {
		opts = append(opts, attendeestore.WithPublisher(publisher, log))
	}
	return eventstore.NewPostgres(in.db), attendeestore.NewPostgres(in.db, opts...)
}
