package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

// errFindings signals that a command ran to completion but found problems.
// The findings have already been printed, so main only sets the exit status.
var errFindings = errors.New("skill checks reported errors")

var (
	cfgFile   string
	appConfig config.Config
	// shutdownTracing is replaced once tracing is initialised.
	shutdownTracing = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "skillet",
	Short: "Validate, fix and format agent skill definitions",
	Long: `Skillet checks SKILL.md skill definitions: the YAML header, the name and
description rules, and the layout of the skill directory. It can also apply
the safe fixes it suggests and format definitions into canonical order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd.Context())
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func setup(ctx context.Context) error {
	if err := config.Init(viper.GetViper(), cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	appConfig = cfg

	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	presenter.Default().SetColorMode(cfg.ColorMode())

	shutdown, err := initTracing(ctx, cfg)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to initialise tracing, continuing without it")
		return nil
	}
	shutdownTracing = shutdown
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.skillet/config.yaml and ./.skillet.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt or json)")
	rootCmd.PersistentFlags().String("color", "auto", "Colour output (auto, always, never)")
	rootCmd.PersistentFlags().String("profile", "", "Configuration profile to apply")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))

	rootCmd.AddCommand(withTracing(validateCmd))
	rootCmd.AddCommand(withTracing(formatCmd))
	rootCmd.AddCommand(withTracing(fixCmd))
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFindings) {
			presenter.Error(err, "")
		}
		exitCode = 1
	}

	if err := shutdownTracing(context.Background()); err != nil {
		logger.L.WithError(err).Warn("failed to shut down tracing")
	}
	cancel()
	os.Exit(exitCode)
}
