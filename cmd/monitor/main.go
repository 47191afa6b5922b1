package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"darkermonitor/config"
	"darkermonitor/internal/market/monitor"
	"darkermonitor/internal/market/snapshot"
	"darkermonitor/logger"
	"darkermonitor/pkg/darkerdb"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config.yaml (default: ./config.yaml or ./config/config.yaml)")
	pflag.Parse()

	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	// viper config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	// zap logger
	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("market monitor failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	if cfg.Market.BaseURLParameter != "" {
		getter, err := config.NewParameterGetter(ctx)
		if err != nil {
			return err
		}
		if err := cfg.Market.ResolveBaseURL(ctx, getter); err != nil {
			return fmt.Errorf("resolve market base url: %w", err)
		}
	}

	writer := snapshot.NewWriter(cfg.Monitor.OutputFile, cfg.Monitor.HistoryDir)
	if err := writer.Prepare(); err != nil {
		return err
	}

	client := darkerdb.NewRESTClient(cfg.Market.BaseURL, cfg.Market.Timeout, zlog)

	m, err := monitor.New(monitor.PollConfig{
		Interval:     cfg.Monitor.Interval,
		OutputFile:   cfg.Monitor.OutputFile,
		HistoryDir:   cfg.Monitor.HistoryDir,
		StoreHistory: cfg.Monitor.StoreHistory,
		Limit:        cfg.Market.Limit,
		Condense:     cfg.Market.Condense,
	}, client, zlog, monitor.WithStore(writer))
	if err != nil {
		return err
	}

	return m.Run(ctx)
}
