package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	av "stockforecast/api/alpha_vantage"
	"stockforecast/api/quandl"
	"stockforecast/config"
	c "stockforecast/core"
	ex "stockforecast/extensions"
	"stockforecast/logger"
	m "stockforecast/models"
	r "stockforecast/repos"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	serve := flag.Bool("serve", false, "run the http server and sync schedule")
	chartDir := flag.String("charts", "", "directory charts are written to, overrides the config")
	seed := flag.Uint64("seed", 0, "split seed, 0 draws a random one")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: stockforecast [-config path] [-serve] [-charts dir] [-seed n] SYMBOL...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// initialize context and signal handler, listen for interrupt and term signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := logger.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *chartDir != "" {
		cfg.Chart.Dir = *chartDir
	}
	if *seed > m.MaxSeed {
		fmt.Fprintf(os.Stderr, "-seed must be at most %d\n", uint64(m.MaxSeed))
		os.Exit(2)
	}
	if *seed != 0 {
		cfg.Forecast.Seed = *seed
	}

	source, err := getSource(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating price source")
	}

	sc := c.ServiceContext{
		Context:         ctx,
		Source:          source,
		MinSyncInterval: cfg.Sync.MinInterval,
		Workers:         cfg.Sync.Workers,
	}

	// postgres is optional, without it prices come straight from the source
	if cfg.HasDatabase() {
		postgresConnection, err := r.GetPostgresConnection(ctx, cfg.Database.Url)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer postgresConnection.Close()

		if err := postgresConnection.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create schema")
		}
		sc.PostgresConnection = postgresConnection
	}

	symbols := normalizeSymbols(flag.Args())

	if *serve {
		runServer(ctx, sc, cfg)
		return
	}

	if len(symbols) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := runOnce(sc, cfg, symbols); err != nil {
		log.Error().Err(err).Msg("forecast failed")
		os.Exit(1)
	}
}

func getSource(cfg *config.Config) (c.PriceSource, error) {
	switch cfg.Source {
	case config.SourceQuandl:
		client := quandl.GetClientForHost(cfg.Quandl.Host, cfg.Quandl.ApiKey)
		client.Collapse = cfg.Quandl.Collapse
		client.Transform = cfg.Quandl.Transform
		return client, nil
	default:
		ts, err := av.ParseTimeSeries(cfg.AlphaVantage.TimeSeries)
		if err != nil {
			return nil, err
		}
		client := av.GetClientForHost(cfg.AlphaVantage.Host, cfg.AlphaVantage.ApiKey)
		client.TimeSeries = ts
		client.OutputSize = cfg.AlphaVantage.OutputSize
		return client, nil
	}
}

func normalizeSymbols(args []string) []string {
	symbols := lo.FilterMap(args, func(s string, _ int) (string, bool) {
		s = strings.ToUpper(strings.TrimSpace(s))
		return s, s != ""
	})
	return lo.Uniq(symbols)
}

func runOnce(sc c.ServiceContext, cfg *config.Config, symbols []string) error {
	results, err := sc.RunForecasts(symbols, cfg.Forecast)
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Printf("%s score: %f\n", res.Symbol, res.Score)
		for _, p := range res.Forecast {
			fmt.Printf("%s %s %f\n", res.Symbol, ex.FmtShort(p.Date), p.Value)
		}
		fmt.Printf("%s horizon: %d (seed %d)\n", res.Symbol, res.Horizon, res.Seed)

		path := filepath.Join(cfg.Chart.Dir, chartFileName(res.Symbol))
		if err := c.SaveChart(res.Frame, fmt.Sprintf("%s forecast", res.Symbol), path); err != nil {
			return err
		}
		log.Info().Str("symbol", res.Symbol).Str("path", path).Msg("chart written")
	}
	return nil
}

// quandl codes carry a slash
func chartFileName(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "_") + ".png"
}

func runServer(ctx context.Context, sc c.ServiceContext, cfg *config.Config) {
	// get http server, makes all of the endpoints and routes
	s := c.GetHttpServer(sc, cfg.Server.Addr)

	if sc.HasDatabase() && len(cfg.Sync.Symbols) > 0 {
		scheduler, err := c.StartSyncSchedule(sc, cfg.Sync.Cron, normalizeSymbols(cfg.Sync.Symbols))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start sync schedule")
		}
		defer func() {
			<-scheduler.Stop().Done()
			log.Info().Msg("sync scheduler stopped")
		}()
	}

	go func() {
		log.Info().Str("addr", s.Addr).Str("source", sc.Source.Name()).Msg("starting stockforecast server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// wait here until the context is closed (ie, ctrl+C)
	<-ctx.Done()
	log.Info().Msg("received shutdown signal, shutting down gracefully...")

	// this gives the server 10 seconds to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped successfully")
}
