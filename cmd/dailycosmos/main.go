// dailycosmos is a headless to-do daemon: a JSON-file task store, one-shot
// due-date reminders delivered to Discord (or the log), and a natural
// language capture flow backed by a chat-completions endpoint. The caller
// facing surface is a set of MCP tools served over stdio.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/paul010/DailyCosmos/internal/config"
	"github.com/paul010/DailyCosmos/internal/effectors"
	"github.com/paul010/DailyCosmos/internal/ingest"
	"github.com/paul010/DailyCosmos/internal/logging"
	"github.com/paul010/DailyCosmos/internal/remind"
	"github.com/paul010/DailyCosmos/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logging.Info("config", "no .env file found, using environment variables")
	} else {
		logging.Info("config", "loaded .env file")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logging.Warn("config", "%v, using defaults", err)
		cfg, _ = config.Load("")
	}

	discordToken := os.Getenv("DISCORD_TOKEN")
	apiKey := os.Getenv("LLM_API_KEY")

	if err := os.MkdirAll(cfg.StatePath, 0755); err != nil {
		logging.Warn("main", "failed to create state dir: %v", err)
	}

	// Reminder delivery history is best-effort observability.
	history, err := remind.OpenHistory(cfg.StatePath)
	if err != nil {
		logging.Warn("main", "reminder history disabled: %v", err)
		history = nil
	} else {
		defer history.Close()
	}

	// The grant request: reminders need a working delivery channel. With a
	// Discord channel configured, opening the session is the grant; if it
	// is denied (open fails), tasks are still created and persisted but
	// scheduling becomes a silent no-op. Without Discord config the log
	// sink serves as local delivery.
	var sink remind.Sink = effectors.LogSink{}
	granted := true
	var discord *effectors.DiscordSink
	if discordToken != "" && cfg.Discord.ChannelID != "" {
		discord, err = effectors.NewDiscordSink(discordToken, cfg.Discord.ChannelID)
		if err == nil {
			err = discord.Open()
		}
		if err != nil {
			logging.Warn("main", "reminder delivery not granted: %v", err)
			granted = false
		} else {
			sink = discord
			defer discord.Close()
		}
	}

	alarms := remind.NewAlarmCenter(sink, history)
	defer alarms.Stop()
	scheduler := remind.NewScheduler(alarms, granted)

	st := store.New(cfg.StatePath, scheduler)
	if err := st.Load(); err != nil {
		logging.Warn("store", "%v", err)
	}
	logging.Info("store", "loaded %d tasks", st.Len())

	// Pending timers do not survive a restart; re-register everything the
	// scheduler still considers worth a reminder.
	for _, t := range st.Tasks() {
		scheduler.Schedule(t)
	}
	logging.Info("main", "%d reminders pending", alarms.Pending())

	deps := &toolDeps{
		store:     st,
		alarms:    alarms,
		history:   history,
		ingester:  ingest.NewClient(cfg.LLM.BaseURL, cfg.LLM.Model),
		apiKey:    apiKey,
		startedAt: time.Now(),
	}

	s := server.NewMCPServer(
		"dailycosmos",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	registerTools(s, deps)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ServeStdio(s)
	}()

	// Shut down on a signal or on the stdio stream closing, whichever comes
	// first, so the deferred cleanup and the final save always run.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logging.Info("main", "received %v", sig)
	case err := <-serveErr:
		if err != nil {
			logging.Warn("main", "server error: %v", err)
		}
	}

	logging.Info("main", "shutting down")
	if err := st.Save(); err != nil {
		logging.Warn("main", "final save failed: %v", err)
	}
}
