package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/fieldops/internal/config"
	"github.com/xiaot623/gogo/fieldops/internal/logging"
	"github.com/xiaot623/gogo/fieldops/internal/repository"
)

var (
	version = "dev"

	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "fieldops",
	Short: "Work session tracking for field missions",
	Long: `fieldops tracks the work sessions of field employees: clock in, pause,
resume and stop, optionally against a mission, and report worked time.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

// SetVersion sets the version information
func SetVersion(v string) {
	version = v
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (default $CONFIG_FILE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// app is what every database-backed command needs.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	store     store.Store
}

func (r *app) Close() {
	if r.store != nil {
		r.store.Close()
	}
	r.logCloser.Close()
}

// withApp loads config, builds the logger and opens the store before
// running fn.
func withApp(fn func(cmd *cobra.Command, args []string, rt *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}

		logger, closer := logging.New(logging.Options{
			Level:     cfg.LogLevel,
			Format:    cfg.LogFormat,
			File:      cfg.LogFile,
			MaxSizeMB: cfg.LogMaxSizeMB,
		})
		rt := &app{cfg: cfg, logger: logger, logCloser: closer}
		defer rt.Close()

		rt.store, err = store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		return fn(cmd, args, rt)
	}
}
