package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rath-service/internal/accounts"
	"rath-service/internal/admin"
	"rath-service/internal/bookings"
	"rath-service/internal/config"
	"rath-service/internal/documents"
	"rath-service/internal/events"
	"rath-service/internal/logger"
	"rath-service/internal/notify"
	"rath-service/internal/otp"
	"rath-service/internal/seatfeed"
	"rath-service/internal/server"
	"rath-service/internal/store/memory"
	"rath-service/internal/store/postgres"
	"rath-service/internal/trips"
	"rath-service/migrations"
	"rath-service/pkg/db"
	"rath-service/pkg/jwt"
	"rath-service/pkg/kafka"
	rredis "rath-service/pkg/redis"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

// backends are the storage and messaging pieces chosen at startup.
type backends struct {
	accounts accounts.Repository
	trips    trips.Repository
	bookings bookings.Repository
	otp      otp.Store
	events   events.Publisher
	kafka    *kafka.Client
	closers  []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg := config.Load()
	logger.Setup(cfg.LogFile, cfg.LogLevel)

	// ── 1. JWT secret ──
	if err := jwt.Init(cfg.JWTSecret); err != nil {
		return err
	}

	// ── 2. Storage, OTP store, event bus ──
	be, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	// ── 3. Notifications ──
	sender := &notify.Router{Fallback: notify.LogSender{}}
	if cfg.TwilioEnabled() {
		sms, err := notify.NewTwilioSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom, cfg.SMSCountryCode)
		if err != nil {
			return err
		}
		sender.Phone = sms
	}
	if be.kafka != nil {
		sender.Email = notify.NewOutbox(be.events)
	}

	// ── 4. Services ──
	hub := seatfeed.NewHub()
	accountSvc := accounts.NewService(be.accounts)
	tripSvc := trips.NewService(be.trips, accountSvc, be.events, hub)
	bookingSvc := bookings.NewService(be.bookings, tripSvc, accountSvc, be.events, hub)
	otpSvc := otp.NewService(be.otp, accountSvc, sender, cfg.OTPTTL)

	// ── 5. Background consumers ──
	if be.kafka != nil {
		notify.NewBookingAlerts(be.kafka, sender).Start(ctx)
	}

	// ── 6. HTTP router ──
	router := server.NewRouter(server.Deps{
		OTP:         otp.NewHandler(otpSvc),
		Accounts:    accounts.NewHandler(accountSvc, documents.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL)),
		Trips:       trips.NewHandler(tripSvc),
		Bookings:    bookings.NewHandler(bookingSvc),
		Admin:       admin.NewHandler(accountSvc, cfg.AdminPasswordHash),
		SeatFeed:    hub,
		CORSOrigins: cfg.CORSOrigins,
	})

	// ── 7. Start server ──
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("rath-service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 8. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	log.Println("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
	cancel() // stop consumers
	return nil
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	if cfg.UseMemoryStore {
		log.Warn("USE_MEMORY_STORE=true: data is lost on restart and events are discarded")
		mem := memory.New()
		return &backends{
			accounts: mem.Accounts(),
			trips:    mem.Trips(),
			bookings: mem.Bookings(),
			otp:      otp.NewMemoryStore(),
			events:   events.Discard{},
		}, nil
	}

	be := &backends{}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	be.closers = append(be.closers, database.Close)

	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		be.close()
		return nil, err
	}
	be.accounts = postgres.NewAccountRepo(database.Pool)
	be.trips = postgres.NewTripRepo(database.Pool)
	be.bookings = postgres.NewBookingRepo(database.Pool)

	redisClient, err := rredis.NewClient(cfg.RedisAddr)
	if err != nil {
		be.close()
		return nil, err
	}
	be.closers = append(be.closers, func() { redisClient.Close() })
	be.otp = otp.NewRedisStore(redisClient)

	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	be.closers = append(be.closers, func() { kafkaClient.Close() })
	if err := kafkaClient.EnsureTopics(ctx, kafka.Topics...); err != nil {
		be.close()
		return nil, err
	}
	be.kafka = kafkaClient
	be.events = kafkaClient
	return be, nil
}
