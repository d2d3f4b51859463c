package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	openaiwhisper "github.com/K3das/orange-scribe/asr/openai-whisper"
	"github.com/K3das/orange-scribe/discord"
	"github.com/K3das/orange-scribe/messages"
	"github.com/K3das/orange-scribe/options"
	"github.com/K3das/orange-scribe/store"
	"github.com/K3das/orange-scribe/web"
	"github.com/K3das/orange-scribe/worker"
	"github.com/caarlos0/env/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var CommitHash = ""

type config struct {
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:8420"`
	// Base URL the options page is opened at, defaults to http://<LISTEN_ADDR>
	PublicURL string `env:"PUBLIC_URL"`

	// Discord is disabled without a token
	DiscordToken string   `env:"DISCORD_TOKEN"`
	Servers      []string `env:"SERVERS"`

	OpenAIWhisperOptions openaiwhisper.OpenAIWhisperClientOptions `envPrefix:"ASR_OPENAI_"`
}

const environmentPrefix = "SCRIBE_"
const logLevelEnvKey = environmentPrefix + "LOG_LEVEL"

func createLog() *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = ""

	logLevelValue := os.Getenv(logLevelEnvKey)
	logLevel, logLevelErr := zapcore.ParseLevel(logLevelValue)

	if logLevelErr != nil {
		logLevel = zapcore.InfoLevel
	}

	rawLog := zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		logLevel,
	)).Named("scribe")

	if CommitHash != "" {
		rawLog = rawLog.With(zap.String("commit", CommitHash))
	}

	if logLevelErr != nil && logLevelValue != "" {
		rawLog.With(zap.String(logLevelEnvKey, logLevelValue)).Warn("unable to parse log level, using INFO")
	}

	return rawLog
}

func main() {
	parentLogger := createLog()
	defer parentLogger.Sync()

	log := parentLogger.Named("main")
	log.With(zap.String("min_log_level", parentLogger.Level().String())).Info("starting")

	cfg := config{}
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix: environmentPrefix,
	}); err != nil {
		log.Fatal("failed to parse config", zap.Error(err))
	}

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = "http://" + cfg.ListenAddr
	}

	s := store.NewStore(parentLogger)
	err := s.Connect(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect store", zap.Error(err))
	}
	defer s.Close()

	messageProvider, err := messages.NewMessageProvider()
	if err != nil {
		log.Fatal("failed to create message provider", zap.Error(err))
	}

	asrClient := openaiwhisper.NewOpenAIWhisperClient(cfg.OpenAIWhisperOptions)

	runtime := worker.NewWorker(worker.WorkerOptions{
		ParentLogger: parentLogger,
		Credentials:  s,
		ASR:          asrClient,
		Options:      worker.BrowserOptionsOpener{URL: publicURL + web.OptionsPath},
	})

	optionsSurface := options.NewOptions(parentLogger, s, messageProvider)

	server, err := web.NewServer(web.ServerOptions{
		ParentLogger: parentLogger,
		Options:      optionsSurface,
		Runtime:      runtime,
		ListenAddr:   cfg.ListenAddr,
	})
	if err != nil {
		log.Fatal("failed to create web server", zap.Error(err))
	}

	var discordBot *discord.DiscordBot
	if cfg.DiscordToken != "" {
		discordBot, err = discord.NewDiscordBot(context.Background(), discord.DiscordBotOptions{
			Token:        cfg.DiscordToken,
			Servers:      cfg.Servers,
			ParentLogger: parentLogger,
			Messages:     messageProvider,
			Runtime:      runtime,
			Options:      optionsSurface,
		})
		if err != nil {
			log.Fatal("failed to create discord bot", zap.Error(err))
		}
	} else {
		log.Info("no discord token, discord host disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := errgroup.Group{}

	// Options page and runtime endpoint
	g.Go(func() error {
		defer cancel()

		return server.Run(ctx)
	})

	// Discord bot
	if discordBot != nil {
		g.Go(func() error {
			defer cancel()

			return discordBot.Run(ctx)
		})
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-shutdownSignal:
		cancel()
		log.Info("received signal, shutting down")
	case <-ctx.Done():
		log.Info("context done, shutting down")
	}

	err = g.Wait()
	if err != nil {
		log.Fatal("error group error", zap.Error(err))
	}
}
