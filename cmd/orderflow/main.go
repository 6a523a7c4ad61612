package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moontrade/orderflow/app"
	"github.com/moontrade/orderflow/logger"
)

// set with -ldflags
var (
	version = "0.0.0"
	gitsha  = ""
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "orderflow",
		Short:         "Order event state server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCommand(), versionCommand())
	return root
}

func serveCommand() *cobra.Command {
	var (
		configPath string
		flags      app.Config
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume the order event stream and serve queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var conf app.Config
			if configPath != "" {
				var err error
				if conf, err = app.LoadConfig(configPath); err != nil {
					return err
				}
			}
			// flags given on the command line win over the file
			set := cmd.Flags().Changed
			if set("addr") {
				conf.Addr = flags.Addr
			}
			if set("metrics-addr") {
				conf.MetricsAddr = flags.MetricsAddr
			}
			if set("auth") {
				conf.Auth = flags.Auth
			}
			if set("log-level") {
				conf.LogLevel = flags.LogLevel
			}
			if set("log-format") {
				conf.LogFormat = flags.LogFormat
			}
			if set("block-size") {
				conf.BlockSize = flags.BlockSize
			}
			if set("transport") {
				conf.Transport.Kind = flags.Transport.Kind
			}
			if set("transport-addr") {
				conf.Transport.Addr = flags.Transport.Addr
			}
			conf.Name = "orderflow"
			conf.Version = version
			conf.GitSHA = gitsha

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := app.Main(ctx, conf); err != nil {
				logger.Error(err, "server stopped")
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.StringVar(&flags.Addr, "addr", "127.0.0.1:11001", "query service bind address")
	f.StringVar(&flags.MetricsAddr, "metrics-addr", "127.0.0.1:9090", "metrics bind address")
	f.StringVar(&flags.Auth, "auth", "", "password required by AUTH")
	f.StringVar(&flags.LogLevel, "log-level", "info", "trace, debug, info, warn, error or quiet")
	f.StringVar(&flags.LogFormat, "log-format", "console", "console or json")
	f.IntVar(&flags.BlockSize, "block-size", 1000, "records per store page")
	f.StringVar(&flags.Transport.Kind, "transport", "redis", "upstream transport: redis or none")
	f.StringVar(&flags.Transport.Addr, "transport-addr", "127.0.0.1:6379", "upstream redis address")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.Versline(app.Config{
				Name:    "orderflow",
				Version: version,
				GitSHA:  gitsha,
			}))
		},
	}
}
