package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/moviestore/internal/booking"
	"github.com/iliyamo/moviestore/internal/config"
	"github.com/iliyamo/moviestore/internal/database"
	"github.com/iliyamo/moviestore/internal/handler"
	"github.com/iliyamo/moviestore/internal/mail"
	"github.com/iliyamo/moviestore/internal/queue"
	"github.com/iliyamo/moviestore/internal/repository"
	"github.com/iliyamo/moviestore/internal/router"
	"github.com/iliyamo/moviestore/internal/seed"
	"github.com/iliyamo/moviestore/internal/storage"
	"github.com/iliyamo/moviestore/internal/ticket"
)

func serve(ctx context.Context, migrate, seedDemo bool) error {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if migrate || seedDemo {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}
	if seedDemo {
		if err := seed.Run(ctx, db, cfg.BcryptCost, time.Now()); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	storeCfg := config.LoadStorageConfig()
	store := storage.New(storeCfg.UploadDir)

	// events stays a nil interface when the queue is off.
	var events booking.EventPublisher
	qcfg := config.LoadQueueConfig()
	if qcfg.Enabled {
		publisher := queue.NewPublisher(qcfg.URL)
		defer publisher.Close()
		events = publisher
		audit, closer, err := queue.OpenAuditLog(qcfg.LogDir)
		if err != nil {
			return err
		}
		defer closer.Close()
		go func() {
			if err := queue.StartReservationConsumer(ctx, qcfg.URL, audit); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("reservation consumer stopped")
			}
		}()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	movies := repository.NewMovieRepo(db)
	cinemas := repository.NewCinemaRepo(db)
	screens := repository.NewScreenRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	reservations := repository.NewReservationRepo(db)

	svc := booking.NewService(movies, cinemas, screens, showtimes, reservations,
		ticket.NewGenerator(store, storeCfg.QRSize), events)
	mailer := mail.NewMailer(config.LoadMailConfig(), cfg.BaseURL)

	e := router.New(router.Handlers{
		Health:      &handler.HealthHandler{DB: db, Redis: rdb},
		Auth:        handler.NewAuthHandler(cfg, users, tokens, store),
		Catalog:     handler.NewCatalogHandler(movies, cinemas, screens, showtimes),
		Booking:     handler.NewBookingHandler(svc, users),
		Reservation: handler.NewReservationHandler(reservations, cinemas, users, svc, mailer),
		Admin:       handler.NewAdminHandler(users, movies, cinemas, screens, showtimes, reservations, store),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		UploadDir: storeCfg.UploadDir,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
	}, log.Logger)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Bool("redis", rdb != nil).Bool("queue", qcfg.Enabled).Msg("listening")
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
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
