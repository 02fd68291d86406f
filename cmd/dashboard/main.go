package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/language-operator/language-operator-dashboard/internal/config"
	"github.com/language-operator/language-operator-dashboard/internal/server"
	"github.com/language-operator/language-operator-dashboard/internal/tenant"
	"github.com/language-operator/language-operator-dashboard/internal/watch"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "dashboard",
		Short:        "Streams language-operator resource changes to dashboard clients over SSE",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "Path to the configuration file (optional)")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting language-operator dashboard",
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.Duration("heartbeat_interval", cfg.HeartbeatInterval()),
		zap.Duration("reconnect_delay", cfg.ReconnectDelay()),
	)

	restConfig, err := loadRESTConfig(cfg.Watch.Kubeconfig)
	if err != nil {
		return fmt.Errorf("load control-plane config: %w", err)
	}
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("create dynamic client: %w", err)
	}

	tenants := make(map[string]tenant.Tenant, len(cfg.Tenants.Static))
	for _, t := range cfg.Tenants.Static {
		tenants[t.Token] = tenant.Tenant{
			User:         t.User,
			Organization: t.Organization,
			Role:         t.Role,
		}
	}
	resolver := tenant.NewCache(tenant.NewStaticTokenResolver(tenants), cfg.TenantCacheTTL())

	srv := server.New(watch.NewDynamicAPI(dynamicClient), resolver, server.Options{
		Addr:              cfg.Server.ListenAddr,
		HeartbeatInterval: cfg.HeartbeatInterval(),
		ReconnectDelay:    cfg.ReconnectDelay(),
		Logger:            logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

// loadRESTConfig prefers in-cluster configuration, falling back to the
// given kubeconfig path or the default loading rules.
func loadRESTConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, nil).ClientConfig()
}

func buildLogger(level string) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logConfig.Level = zap.NewAtomicLevelAt(parsed)
	return logConfig.Build()
}
