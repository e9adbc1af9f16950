package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dohrules/pkg/config"
	"dohrules/pkg/logger"
	"dohrules/pkg/pipeline"
	"dohrules/pkg/rules"
	"dohrules/pkg/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("dohrules failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "dohrules",
		Short:         "Generate DoH routing rules from the curl DoH provider list",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, closeLog, err := setup(configPath)
			if err != nil {
				return err
			}
			defer closeLog.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return generate(ctx, cfg, log)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")

	root.AddCommand(&cobra.Command{
		Use:   "convert",
		Short: "Rebuild geosite .dat files from the .list files in the output directory",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, closeLog, err := setup(configPath)
			if err != nil {
				return err
			}
			defer closeLog.Close()

			summary, err := rules.New(cfg.Output.Dir, log).Convert()
			if err != nil {
				return fmt.Errorf("convert: %w", err)
			}
			if len(summary.Files) == 0 {
				log.Warn("no list files converted", "dir", cfg.Output.Dir)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dohrules %s\n", version.DohrulesVersion)
		},
	})

	return root
}

func setup(configPath string) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Setup(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log, closer := logger.Setup(cfg.Logging.Level, cfg.Logging.File, logger.Rotation{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	log.Info("starting dohrules", "version", version.DohrulesVersion, "source", cfg.Source.URL, "output", cfg.Output.Dir)
	return cfg, log, closer, nil
}

func generate(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	p, closer, err := pipeline.FromConfig(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Warn("failed to close geoip backend", "error", err)
		}
	}()

	if _, err := p.Run(ctx); err != nil {
		return err
	}
	return nil
}
