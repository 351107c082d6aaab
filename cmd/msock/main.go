package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/multisock"
	"github.com/wippyai/multisock/config"
	"github.com/wippyai/multisock/metrics"
	"github.com/wippyai/multisock/resolve"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, render(errorStyle, "Error: "+err.Error()))
		os.Exit(1)
	}
}

type globalFlags struct {
	configFile  string
	logLevel    string
	socketType  string
	protocol    string
	resolver    string
	dnsServer   string
	metricsAddr string
	development bool
}

// app carries what every subcommand shares once flags and config are merged.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	collector *metrics.Collector
	registry  *prometheus.Registry
}

func newRootCommand() *cobra.Command {
	var (
		flags globalFlags
		a     app
	)

	cmd := &cobra.Command{
		Use:           "msock",
		Short:         "Multi-source socket client and echo server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, &flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "TOML configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.development, "log-dev", false, "human-readable development logging")
	pf.StringVar(&flags.socketType, "type", "", "socket type (stream, dgram, seqpacket)")
	pf.StringVar(&flags.protocol, "proto", "", "protocol (tcp, udp, default or a number)")
	pf.StringVar(&flags.resolver, "resolver", "", "resolver kind (system, dns)")
	pf.StringVar(&flags.dnsServer, "dns-server", "", "DNS server host:port for the dns resolver")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	cmd.AddCommand(
		newGetCommand(&a),
		newEchoCommand(&a),
		newResolveCommand(&a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, flags *globalFlags) error {
	cfg := config.Default()
	if flags.configFile != "" {
		loaded, err := config.Load(flags.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if changed("log-dev") {
		cfg.Log.Development = flags.development
	}
	if changed("type") {
		cfg.Group.SocketType = flags.socketType
		if !changed("proto") {
			cfg.Group.Protocol = ""
		}
	}
	if changed("proto") {
		cfg.Group.Protocol = flags.protocol
	}
	if changed("resolver") {
		cfg.Resolver.Kind = flags.resolver
	}
	if changed("dns-server") {
		cfg.Resolver.Server = flags.dnsServer
		if !changed("resolver") {
			cfg.Resolver.Kind = config.ResolverDNS
		}
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = flags.metricsAddr
	}
	cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	multisock.SetLogger(log)
	resolve.SetLogger(log)

	a.cfg = cfg
	a.log = log

	if cfg.Metrics.Addr != "" {
		a.registry = prometheus.NewRegistry()
		a.collector, err = metrics.New("msock", a.registry)
		if err != nil {
			return err
		}
	}
	return nil
}

// newGroup creates a group from the merged configuration.
func (a *app) newGroup() (*multisock.Group, error) {
	attr, err := a.cfg.Attr()
	if err != nil {
		return nil, err
	}
	r, err := a.cfg.NewResolver()
	if err != nil {
		return nil, err
	}

	opts := []multisock.Option{
		multisock.WithLogger(a.log),
		multisock.WithResolver(r),
	}
	if a.collector != nil {
		opts = append(opts, multisock.WithObserver(a.collector))
	}
	return multisock.New(&attr, opts...)
}

// serveMetrics exposes the registry until ctx is done. It is a no-op when
// metrics are disabled.
func (a *app) serveMetrics(ctx context.Context) {
	if a.registry == nil {
		return
	}

	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("serving metrics", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})
}
