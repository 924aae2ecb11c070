package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"visionbot/api/internal/bot"
	"visionbot/api/internal/config"
	"visionbot/api/internal/credentials"
	"visionbot/api/internal/httpserver"
	"visionbot/api/internal/store"
	"visionbot/api/internal/teams"
	"visionbot/api/internal/telegram"
	"visionbot/api/internal/upload"
	"visionbot/api/internal/vision"
	"visionbot/api/internal/vision/gemini"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw := newGateway(cfg)
	results, closeStore, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("open result store")
	}
	defer closeStore()

	caption := &bot.CaptionWorkflow{Vision: gw, GroupHint: true}
	ocr := bot.NewConsentWorkflow(gw, results)

	// --- Bot Framework routes ---
	apps := map[string]credentials.App{}
	for _, b := range []config.BotConfig{cfg.Bots.Caption, cfg.Bots.OCR} {
		if b.ID != "" {
			apps[b.ID] = credentials.App{AppID: b.AppID, AppPassword: b.AppPassword}
		}
	}
	creds := credentials.NewProvider(apps)
	connector := teams.NewConnector(nil)
	uploads := upload.New(nil)
	endpoint := func(wf bot.Handler, name string) *teams.Endpoint {
		return &teams.Endpoint{
			Workflow:    wf,
			Credentials: creds,
			Connector:   connector,
			Uploads:     uploads,
			Log:         log.With().Str("bot", name).Logger(),
		}
	}

	routes := map[string]http.Handler{}
	if cfg.Bots.OCR.ID != "" {
		ep := endpoint(ocr, "ocr")
		routes["/api/messages"] = ep
		routes["/ocr/messages"] = ep
	}
	if cfg.Bots.Caption.ID != "" {
		routes["/caption/messages"] = endpoint(caption, "caption")
	}

	// DefaultServeMux: ListenForWebhook registers its handler there.
	httpserver.Register(http.DefaultServeMux, routes, "ok")
	for path := range routes {
		log.Info().Str("path", path).Msg("bot framework route")
	}

	// --- Telegram ---
	if cfg.Telegram.Token != "" {
		if err := startTelegram(ctx, cfg, caption, ocr, log); err != nil {
			log.Fatal().Err(err).Msg("telegram")
		}
	}

	addr := "0.0.0.0:" + cfg.Port
	if err := httpserver.Serve(ctx, addr, http.DefaultServeMux, log); err != nil {
		log.Fatal().Err(err).Msg("http server")
	}
	log.Info().Msg("bye")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if cfg.Log.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func newGateway(cfg *config.Config) vision.Gateway {
	if cfg.Vision.Provider == config.ProviderGemini {
		return gemini.New(cfg.Vision.GeminiAPIKey, cfg.Vision.GeminiModel)
	}
	return vision.New(cfg.Vision.Endpoint, cfg.Vision.Key, nil)
}

func newStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.ResultStore, func(), error) {
	maxAge := cfg.Store.MaxAge
	switch cfg.Store.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Address,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.Store.Redis.Address).Msg("redis connected")
		s := store.NewRedis(rdb, maxAge)
		return s, func() { _ = s.Close() }, nil

	case config.BackendPostgres:
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		repo, err := store.OpenPostgres(openCtx, cfg.Store.DatabaseURL, maxAge)
		if err != nil {
			return nil, nil, err
		}
		repo.DB.SetMaxOpenConns(10)
		repo.DB.SetMaxIdleConns(10)
		repo.DB.SetConnMaxLifetime(1 * time.Hour)
		log.Info().Str("dsn", config.SafeDSN(cfg.Store.DatabaseURL)).Msg("db connected")
		return repo, func() { _ = repo.Close() }, nil

	default:
		return store.NewMemory(maxAge), func() {}, nil
	}
}

// ---------------- Telegram modes -----------------

func startTelegram(ctx context.Context, cfg *config.Config, caption, ocr bot.Handler, log zerolog.Logger) error {
	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	tg.Debug = false

	mode, _ := telegram.ParseOperation(cfg.Telegram.DefaultMode)
	r := &telegram.Router{
		Bot:     tg,
		Modes:   telegram.NewModes(mode),
		Caption: caption,
		OCR:     ocr,
		Log:     log.With().Str("channel", "telegram").Logger(),
	}

	webhookURL := strings.TrimSpace(cfg.Telegram.WebhookURL)
	if webhookURL == "" {
		log.Info().Msg("telegram: polling mode")
		go runPolling(ctx, tg, log, func(upd tgbotapi.Update) {
			go r.HandleUpdate(ctx, upd)
		})
		return nil
	}

	// secret webhook path
	path := "/webhook/" + shortHash(tg.Token)
	public := strings.TrimRight(webhookURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := tg.Request(wh); err != nil {
		return err
	}

	updates := tg.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			go r.HandleUpdate(ctx, upd)
		}
	}()
	log.Info().Str("path", path).Msg("telegram: webhook mode")
	return nil
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return 2 * time.Second
		}
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, tg *tgbotapi.BotAPI, log zerolog.Logger, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := tg.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			log.Warn().Err(err).Dur("retry_in", d).Msg("polling error")
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// shortHash hides the token from the webhook path; stable per token.
func shortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
