package main

import (
	"bytes"
	"context"
	"errors"
	"exchange-telegram-bot/config"
	"exchange-telegram-bot/internal/commands"
	"exchange-telegram-bot/internal/database"
	"exchange-telegram-bot/internal/exchangerate"
	"exchange-telegram-bot/internal/metrics"
	"exchange-telegram-bot/internal/symbols"
	"exchange-telegram-bot/internal/telegram"
	"exchange-telegram-bot/lib/translation"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	translation.Configure("locales", config.GetString("lang"))
	log.Debugf("using translations for %s", translation.GetLanguage())

	store, err := database.Open(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	botMetrics := metrics.New(prometheus.DefaultRegisterer)
	botMetrics.Load(store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := exchangerate.NewClient(exchangerate.Config{
		URL:     config.GetString("exchange_api_url"),
		APIKey:  config.GetString("exchange_api_key"),
		Timeout: config.GetDuration("exchange_api_timeout"),
		Debug:   config.GetBool("debug"),
	})

	refreshInterval := config.GetDuration("symbols_refresh_interval")
	symbolsCache := symbols.NewCache(client, refreshInterval)
	if refreshInterval > 0 {
		symbolsCache.Start(ctx, refreshInterval)
	}

	exchange := commands.NewExchangeCommand(symbolsCache, client)
	exchange.OnOutcome = botMetrics.ObserveOutcome

	router := commands.NewRouter()
	for _, token := range config.GetStringSlice("commands") {
		router.Register(token, exchange.Handle)
	}

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
	}, router)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if err := bot.RegisterCommands(router.Tokens()); err != nil {
		log.Errorf("Failed to register commands: %v", err)
	}

	server := launchMetricsAndHealthServer(config.GetInt("metrics_port"))

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				botMetrics.Save(store)
			}
		}
	}()

	log.Infof("Listening for commands %v", router.Tokens())
	handleUpdates(ctx, bot, bot.GetUpdatesChannel(), botMetrics, config.GetInt("workers"))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Failed to stop metrics server: %v", err)
	}

	botMetrics.Save(store)
	log.Info("Metrics saved, shutting down...")
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

// handleUpdates dispatches updates to a bounded pool of handlers until ctx
// is cancelled, then waits for the handlers in flight.
func handleUpdates(ctx context.Context, bot *telegram.Bot, updates tgbotapi.UpdatesChannel, m *metrics.BotMetrics, workers int) {
	if workers < 1 {
		workers = 1
	}
	p := pool.New().WithMaxGoroutines(workers)
	defer p.Wait()

	// handlers in flight finish their replies after shutdown starts
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			bot.Stop()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				log.Debug("Received non-message update")
				continue
			}
			p.Go(func() {
				handleCommand(handlerCtx, bot, m, update)
			})
		}
	}
}

func handleCommand(ctx context.Context, bot *telegram.Bot, m *metrics.BotMetrics, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	text, ok := bot.HandleUpdate(ctx, update)
	if !ok {
		return
	}

	m.ObserveMessage(update.Message.Chat.ID, update.Message.Chat.Title)

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		MessageID: update.Message.MessageID,
	})

	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else {
		m.CommandsProcessed.Inc()
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthCheckHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Launching metrics and health endpoint on :%d", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start metrics and health server: %v", err)
		}
	}()

	return server
}
