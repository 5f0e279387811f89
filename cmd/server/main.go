package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/event-reservation/internal/config"
	"github.com/iliyamo/event-reservation/internal/database"
	"github.com/iliyamo/event-reservation/internal/handler"
	"github.com/iliyamo/event-reservation/internal/queue"
	"github.com/iliyamo/event-reservation/internal/repository"
	"github.com/iliyamo/event-reservation/internal/router"
	"github.com/iliyamo/event-reservation/internal/service"
)

// stores groups the persistence ports chosen by APP_STORE.
type stores struct {
	reservas repository.ReservaRepository
	eventos  repository.EventoStore
	usuarios repository.UsuarioStore
	tokens   repository.TokenStore
	db       *sql.DB
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unreachable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	var pub service.EventPublisher = service.NopPublisher{}
	if cfg.Queue.Enabled() {
		p := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Exchange, log)
		defer p.Close()
		pub = p

		consumer := queue.NewAuditConsumer(cfg.Queue, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set; lifecycle events are not published")
	}

	reservas := service.NewReservaService(st.reservas, pub, log.Named("reservas"), &service.ReservaServiceConfig{
		MaxCantidad:         cfg.Reserva.MaxCantidad,
		MaxActivasPorEvento: cfg.Reserva.MaxActivasPorEvento,
	})

	cacheCfg := config.LoadCacheConfig()
	cacheCfg.Prefix += ":eventos"

	eventos := handler.NewEventoHandler(st.eventos, reservas, log)
	eventos.Cache = rdb
	eventos.CachePrefix = cacheCfg.Prefix

	checks := map[string]handler.Check{}
	if st.db != nil {
		checks["mysql"] = st.db.PingContext
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	e := router.New(router.Deps{
		JWTSecret:    cfg.JWTSecret,
		Auth:         handler.NewAuthHandler(cfg, st.usuarios, st.tokens, log),
		Eventos:      eventos,
		Reservas:     handler.NewReservaHandler(reservas, log),
		Estadisticas: handler.NewEstadisticasHandler(reservas, log),
		Checks:       checks,
		Redis:        rdb,
		RateLimit:    config.LoadRateLimitConfig(),
		Cache:        cacheCfg,
		Log:          log,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (stores, error) {
	if cfg.UsesMemoryStore() {
		log.Warn("APP_STORE=memory: data is lost on restart")
		mem := repository.NewMemoryRepository()
		auth := repository.NewMemoryAuthRepository()
		return stores{reservas: mem, eventos: mem, usuarios: auth, tokens: auth}, nil
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return stores{}, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	return stores{
		reservas: repository.NewReservaRepo(db),
		eventos:  repository.NewEventoRepo(db),
		usuarios: repository.NewUserRepo(db),
		tokens:   repository.NewTokenRepo(db),
		db:       db,
	}, nil
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsProd() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return log
}
