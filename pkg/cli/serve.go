package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Svigo-o/PoCGen/pkg/api"
	"github.com/Svigo-o/PoCGen/pkg/capture"
	"github.com/Svigo-o/PoCGen/pkg/config"
	"github.com/Svigo-o/PoCGen/pkg/dispatch"
	"github.com/Svigo-o/PoCGen/pkg/logging"
	"github.com/Svigo-o/PoCGen/pkg/proxy"
)

// shutdownTimeout bounds graceful shutdown of both listeners.
const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	configFile  string
	apiAddr     string
	proxyAddr   string
	maxCaptured int
	insecureTLS bool
	logLevel    string
	logFormat   string
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the intercept proxy and the control API (foreground)",
	Example: `  # Start with defaults (proxy on :8080, API on :7001)
  pocgen serve

  # Custom addresses and a larger capture window
  pocgen serve --proxy-addr 0.0.0.0:8080 --api-addr 127.0.0.1:9001 --max-captured 2000

  # Load settings from a config file
  pocgen serve --config pocgen.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(&serveFlagVals)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.configFile, "config", "c", "", "path to YAML config file")
	serveCmd.Flags().StringVar(&f.apiAddr, "api-addr", "", "control API listen address")
	serveCmd.Flags().StringVar(&f.proxyAddr, "proxy-addr", "", "intercept proxy listen address")
	serveCmd.Flags().IntVar(&f.maxCaptured, "max-captured", 0, "maximum retained captures")
	serveCmd.Flags().BoolVar(&f.insecureTLS, "insecure-tls", false, "skip certificate verification on https replays")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "", "log format: text, json")
}

func runServe(f *serveFlags) error {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return err
	}

	// Flags win over file and environment.
	if f.apiAddr != "" {
		cfg.APIAddr = f.apiAddr
	}
	if f.proxyAddr != "" {
		cfg.ProxyAddr = f.proxyAddr
	}
	if f.maxCaptured > 0 {
		cfg.MaxCaptured = f.maxCaptured
	}
	if f.insecureTLS {
		cfg.InsecureTLS = true
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
	})

	store := capture.NewStore(cfg.MaxCaptured)
	dispatcher := dispatch.NewNetDispatcher(
		dispatch.WithTimeout(time.Duration(cfg.DispatchTimeout)),
		dispatch.WithInsecureTLS(cfg.InsecureTLS),
		dispatch.WithLogger(log),
	)

	apiServer := api.NewServer(cfg.APIAddr, store, dispatcher,
		api.WithLogger(log),
		api.WithVersion(Version),
	)
	interceptor := proxy.New(cfg.ProxyAddr, store, proxy.WithLogger(log))

	if err := apiServer.Start(); err != nil {
		return err
	}
	if err := interceptor.Start(); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = apiServer.Stop(shutdownCtx)
		return err
	}

	log.Info("pocgen running",
		"proxy", interceptor.Addr(),
		"api", apiServer.Addr(),
		"max_captured", cfg.MaxCaptured,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := interceptor.Stop(shutdownCtx); err != nil {
		log.Warn("proxy shutdown", "error", err)
	}
	if err := apiServer.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}
