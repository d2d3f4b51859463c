package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/K3das/orange-scribe/messages"
	"github.com/K3das/orange-scribe/page"
	"github.com/K3das/orange-scribe/page/htmldoc"
	"github.com/K3das/orange-scribe/worker"
	"github.com/caarlos0/env/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type config struct {
	RuntimeURL string `env:"RUNTIME_URL" envDefault:"http://127.0.0.1:8420"`
}

const environmentPrefix = "SCRIBE_"
const logLevelEnvKey = environmentPrefix + "LOG_LEVEL"

func createLog() *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = ""

	logLevel, err := zapcore.ParseLevel(os.Getenv(logLevelEnvKey))
	if err != nil {
		logLevel = zapcore.WarnLevel
	}

	return zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		logLevel,
	)).Named("scribe_page")
}

// terminal stands in for the button and the toast: control labels are logged
// and the toast is printed.
type terminal struct {
	log *zap.Logger
}

func (t terminal) Render(_ context.Context, label string, disabled bool) error {
	t.log.With(zap.Bool("disabled", disabled)).Info(label)
	return nil
}

func (t terminal) ShowToast(_ context.Context, text string, isError bool) error {
	if isError {
		_, err := fmt.Fprintln(os.Stderr, text)
		return err
	}
	_, err := fmt.Fprintln(os.Stdout, text)
	return err
}

func (t terminal) HideToast(context.Context) error {
	return nil
}

func main() {
	log := createLog()
	defer log.Sync()

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <page url>\n", os.Args[0])
		os.Exit(2)
	}
	pageURL := os.Args[1]

	cfg := config{}
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix: environmentPrefix,
	}); err != nil {
		log.Fatal("failed to parse config", zap.Error(err))
	}

	messageProvider, err := messages.NewMessageProvider()
	if err != nil {
		log.Fatal("failed to create message provider", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpClient := http.DefaultClient

	document, err := htmldoc.Fetch(ctx, httpClient, pageURL)
	if err != nil {
		log.Fatal("failed to load page", zap.String("url", pageURL), zap.Error(err))
	}

	host := terminal{log: log}
	controller := page.NewController(page.ControllerOptions{
		ParentLogger: log,
		Document:     document,
		Control:      host,
		Surface:      host,
		Runtime:      worker.NewClient(cfg.RuntimeURL, httpClient),
		Messages:     messageProvider,
	}, page.WithHTTPClient(httpClient))

	if err := controller.Mount(ctx); err != nil {
		log.Fatal("failed to mount control", zap.Error(err))
	}

	outcome := controller.Click(ctx)
	if outcome.IsError {
		log.Sync()
		os.Exit(1)
	}
}
