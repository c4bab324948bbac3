package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rpattn/visadesk/internal/config"
)

var (
	// persistent flags
	configDir string

	v   = config.NewViper("")
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "visadesk",
	Short: "Visa and passport case management backend",
	Long: `visadesk serves the case, passport form and service catalog API and
ships the operational commands around it: schema migrations, catalog seeding,
workbook exports and an offline change detector.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var setupLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
	Timestamp().
	Logger()

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"Directory containing config.yaml (default is the working directory)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogConfig().Level,
		"Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false,
		"Write human readable console logs instead of JSON")

	mustBind("log-level", v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")))
	mustBind("log-pretty", v.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty")))

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, exportCmd, diffCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig registers the --config-dir search path ahead of the defaults.
func initConfig() {
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := setupLogging(loaded.Log); err != nil {
		return err
	}
	cfg = loaded
	if used := v.ConfigFileUsed(); used != "" {
		log.Info().Str("file", used).Msg("using config file")
	}
	return nil
}

func setupLogging(c config.LogConfig) error {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	if c.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}

func mustBind(flagName string, err error) {
	if err != nil {
		setupLog.Fatal().Err(err).Msgf("Failed to bind flag %s", flagName)
	}
}
