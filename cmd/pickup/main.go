package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/storehawk/apple-pickup-cn/internal/app"
	"github.com/storehawk/apple-pickup-cn/internal/config"
	"github.com/storehawk/apple-pickup-cn/internal/domain"
	"github.com/storehawk/apple-pickup-cn/internal/logger"
	"github.com/storehawk/apple-pickup-cn/pkg/catalog"
	"github.com/storehawk/apple-pickup-cn/pkg/fulfillment"
	"github.com/storehawk/apple-pickup-cn/pkg/httpclient"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "pickup: %v\n", err)
		}
		os.Exit(1)
	}
}

// stringList collects repeatable string flags in order.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("value must not be empty")
	}
	*s = append(*s, v)
	return nil
}

func run(args []string) error {
	fs := flag.NewFlagSet("pickup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var models, parts stringList
	location := fs.String("location", "Beijing", "city or postal code in China to search near")
	store := fs.String("store", "", "Apple Store code (e.g. R320) to query directly")
	fs.Var(&models, "model", "restrict to a model label; repeatable (default: every known model)")
	fs.Var(&parts, "part", "restrict to an Apple part number (e.g. MTUV3CH/A); repeatable")
	showRaw := fs.Bool("show-raw", false, "print the raw JSON payload for debugging")
	retry := fs.Int("retry", 1, "max attempts for the HTTP call")
	retryDelay := fs.Float64("retry-delay", 0, "seconds to wait between retry attempts")
	modelsFile := fs.String("models-file", "", "optional YAML/JSON model registry overriding the built-in catalog")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*location) == "" {
		return fmt.Errorf("invalid arguments: --location must not be empty")
	}
	if *retry < 1 {
		return fmt.Errorf("invalid arguments: --retry must be at least 1")
	}
	if *retryDelay < 0 {
		return fmt.Errorf("invalid arguments: --retry-delay must not be negative")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("pickup starting", "config", cfg)

	if *store != "" && !fulfillment.ValidStoreCode(*store) {
		// Advisory only; the endpoint is the authority on store codes.
		logger.WarnObj("store code does not look like an Apple store code", "store", *store)
	}

	known := catalog.Defaults()
	if *modelsFile != "" {
		known, err = catalog.Load(*modelsFile)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
	}
	selected, err := catalog.Resolve(known, models)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := fulfillment.NewClient(cfg.FulfillmentURL, httpclient.NewRestyClient(cfg.HTTPTimeout))
	runner := app.NewRunner(client, os.Stdout)

	opts := app.Options{
		Location: *location,
		Store:    *store,
		Parts:    parts,
		Models:   selected,
		Policy: domain.RetryPolicy{
			MaxAttempts: *retry,
			Delay:       time.Duration(*retryDelay * float64(time.Second)),
		},
		ShowRaw: *showRaw,
	}

	return runner.Run(ctx, opts)
}
