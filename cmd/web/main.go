// Command web runs the Mood-Music-Go client core and serves its local JSON
// API. Configuration comes from the environment (see pkg/config); every
// dependency is constructed here and handed to the components that need it.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	libspotify "github.com/zmb3/spotify"

	"Mood-Music-Go/pkg/analysis"
	"Mood-Music-Go/pkg/capture"
	"Mood-Music-Go/pkg/catalog"
	"Mood-Music-Go/pkg/config"
	"Mood-Music-Go/pkg/db"
	"Mood-Music-Go/pkg/events"
	"Mood-Music-Go/pkg/feedback"
	"Mood-Music-Go/pkg/handlers"
	"Mood-Music-Go/pkg/history"
	"Mood-Music-Go/pkg/library"
	"Mood-Music-Go/pkg/mood"
	"Mood-Music-Go/pkg/persistence"
	"Mood-Music-Go/pkg/player"
	"Mood-Music-Go/pkg/prefs"
	"Mood-Music-Go/pkg/session"
)

const localUser = "local"

func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()
	if cfg.SigningKey == "" {
		log.Fatal("SIGNING_KEY must be set")
	}

	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("db init")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := newServices(ctx, cfg, database)
	svc.outbox.Start()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           svc.app.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with the process so event streams let go.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	svc.player.Close()
	svc.outbox.Stop()
}

// services holds the long lived components whose lifecycle main manages.
type services struct {
	app    *handlers.Application
	player *player.Player
	outbox *history.Outbox
}

// newServices wires every component from cfg. Optional collaborators that
// are not configured are left out rather than failing startup.
func newServices(ctx context.Context, cfg *config.Config, database *db.DB) *services {
	bus := events.NewBus()
	hc := &http.Client{Timeout: 30 * time.Second}

	userID := localUser
	var pc *persistence.Client
	if cfg.SupabaseURL != "" && cfg.SupabaseRefreshToken != "" {
		src := session.NewSource(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseRefreshToken, nil)
		src.Client = hc
		if id, err := src.UserID(ctx); err == nil {
			userID = id
			pc = persistence.New(cfg.APIBaseURL, src.HTTPClient(ctx))
		} else {
			log.WithError(err).Warn("no session, liked songs and history stay local")
		}
	}

	likes := &library.Likes{DB: database, UserID: userID, Bus: bus}
	recorders := history.Multi{history.LocalRecorder{DB: database, UserID: userID}}
	if pc != nil {
		likes.API = pc
		recorders = append(recorders, history.RemoteRecorder{API: pc})
	}

	gate := mood.NewGate(database, cfg.MoodCooldown)
	devices := capture.New(cfg.FFmpegPath, cfg.CameraDevice, cfg.MicDevice, cfg.CaptureSampleRate)
	devices.Settle = cfg.CaptureSettle
	detector := mood.NewDetector(database, gate, devices, analysis.New(cfg.APIBaseURL, hc),
		mood.WithTimings(cfg.CaptureSettle, cfg.CaptureRecord),
		mood.WithSampleRate(cfg.CaptureSampleRate),
		mood.WithBus(bus),
		mood.WithJournal(history.MoodJournal{DB: database, UserID: userID}),
	)

	outbox := history.NewOutbox(recorders, cfg.HistoryWorkers, cfg.HistoryQueue, history.WithMood(detector.Label))
	p := player.New(
		player.WithTick(cfg.PlayerTick),
		player.WithRecorder(outbox),
		player.WithBus(bus),
	)

	app := &handlers.Application{
		Player:  p,
		Mood:    detector,
		Catalog: catalog.NewChain(ctx, cfg, database, hc),
		Likes:   likes,
		DB:      database,
		Board:   feedback.NewBoard(database),
		Bus:     bus,
		Prefs:   prefs.New(database),
		SignKey: []byte(cfg.SigningKey),
		UserID:  userID,
	}
	if pc != nil {
		app.RemoteHistory = pc
	}
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		auth := libspotify.NewAuthenticator(cfg.SpotifyRedirectURL, libspotify.ScopeUserReadPrivate, libspotify.ScopeUserLibraryRead)
		auth.SetAuthInfo(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
		app.Authenticator = auth
	}
	return &services{app: app, player: p, outbox: outbox}
}
