package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/coinbase-dtc/bridge/aggregator"
	"github.com/coinbase-dtc/bridge/auth"
	"github.com/coinbase-dtc/bridge/bridge"
	"github.com/coinbase-dtc/bridge/config"
	"github.com/coinbase-dtc/bridge/feed"
	"github.com/coinbase-dtc/bridge/feed/binance"
	"github.com/coinbase-dtc/bridge/feed/coinbase"
	"github.com/coinbase-dtc/bridge/platform"
	"github.com/coinbase-dtc/bridge/registry"
)

func getServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve [config-file]",
		Args:  cobra.ExactArgs(1),
		Short: "Runs the DTC bridge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.LoadConfigFromFlags(args[0], "")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			trapSignal(cancel, logger)

			return run(ctx, cfg, logger)
		},
	}
	return serveCmd
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	catalog := registry.NewSeededCatalog(registry.DefaultSeed())
	for _, sc := range cfg.Symbols {
		priceIncrement, err := decimal.NewFromString(sc.PriceIncrement)
		if err != nil {
			return fmt.Errorf("invalid price_increment for %s-%s: %w", sc.Base, sc.Quote, err)
		}
		sizeIncrement, err := decimal.NewFromString(sc.SizeIncrement)
		if err != nil {
			return fmt.Errorf("invalid size_increment for %s-%s: %w", sc.Base, sc.Quote, err)
		}
		canonical := sc.Base + "-" + sc.Quote
		if err := catalog.Register(registry.SymbolInfo{
			Canonical:      canonical,
			Display:        canonical,
			Base:           sc.Base,
			Quote:          sc.Quote,
			Exchange:       "COINBASE",
			Active:         true,
			PriceIncrement: priceIncrement,
			SizeIncrement:  sizeIncrement,
		}); err != nil {
			return err
		}
	}

	clock := platform.SystemClock{}

	creds, authenticated, err := auth.LoadCredentials(cfg.Auth.EnvKeyVar, cfg.Auth.EnvPrivateKeyVar, cfg.Auth.KeyFilePath)
	if err != nil {
		return fmt.Errorf("failed to load CDP credentials: %w", err)
	}

	var authenticator *auth.JWTAuthenticator
	var tokenForSubscribe func() (string, error)
	if authenticated {
		authenticator, err = auth.NewJWTAuthenticator(creds, clock)
		if err != nil {
			return fmt.Errorf("failed to build JWT authenticator: %w", err)
		}
		tokenForSubscribe = func() (string, error) {
			return authenticator.CurrentToken("GET", "/ws")
		}
		logger.Info().Msg("running with authenticated Coinbase CDP credentials")
	} else {
		logger.Warn().Msg("no CDP credentials configured, running against public Coinbase channels only")
	}

	srvCfg := bridge.ServerConfig{
		BindAddress:       cfg.Server.BindAddress,
		Port:              cfg.Server.Port,
		MaxClients:        cfg.Server.MaxClients,
		HeartbeatInterval: cfg.HeartbeatInterval(),
		ReconnectAddress:  cfg.Server.ReconnectAddress,
		ServerName:        cfg.Server.ServerName,
		RequireAuth:       cfg.Server.RequireAuth,
		ValidUsername:     cfg.Server.Username,
		ValidPassword:     cfg.Server.Password,
	}

	server := bridge.New(srvCfg, logger, clock, catalog, nil)
	agg := aggregator.New(logger, server)
	server.SetAggregator(agg)

	for _, ec := range cfg.Exchanges {
		var adapter feed.Adapter
		switch ec.Name {
		case "COINBASE":
			adapter = coinbase.NewAdapter(ctx, server, logger, tokenForSubscribe)
		case "BINANCE":
			adapter = binance.NewAdapter(ctx, server, logger)
		default:
			return fmt.Errorf("unsupported exchange: %s", ec.Name)
		}
		if err := agg.AddExchange(adapter); err != nil {
			return err
		}
	}

	restClient := coinbase.NewRESTClient(authenticator)
	if products, err := restClient.ListProducts(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to fetch coinbase product catalog at startup")
	} else {
		for _, p := range products {
			catalog.Allocate(p.ProductID)
		}
	}

	if authenticated {
		if accounts, err := restClient.ListAccounts(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to fetch coinbase accounts at startup")
		} else {
			logger.Info().Int("count", len(accounts)).Msg("authenticated coinbase accounts visible")
		}
	}

	admin := bridge.NewAdminRouter(logger, agg, catalog, cfg.Admin.AllowedOrigins, cfg.Admin.VerboseCORS, server.ActiveSessionCount)
	router := mux.NewRouter()
	admin.RegisterRoutes(router, bridge.APIPathPrefix)

	adminAddr := cfg.Admin.ListenAddr
	if adminAddr == "" {
		adminAddr = "0.0.0.0:8080"
	}
	adminSrv := &http.Server{
		Addr:         adminAddr,
		Handler:      admin.CORSHandler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", adminAddr).Msg("admin http server listening")
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		errCh <- server.Run(ctx)
	}()

	go func() {
		<-ctx.Done()
		_ = adminSrv.Close()
	}()

	return <-errCh
}
