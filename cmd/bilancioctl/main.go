package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bilancio/internal/config"
	"bilancio/internal/log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:           "bilancioctl",
		Short:         "Operate the bilancio dashboard engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment only)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (text, json)")
	root.PersistentFlags().String("backend", "", "data backend (memory, sqlite)")
	root.PersistentFlags().String("db", "", "SQLite database path")
	_ = a.v.BindPFlag("LOG_LEVEL", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("LOG_FORMAT", root.PersistentFlags().Lookup("log-format"))
	_ = a.v.BindPFlag("DATA_BACKEND", root.PersistentFlags().Lookup("backend"))
	_ = a.v.BindPFlag("SQLITE_DB_PATH", root.PersistentFlags().Lookup("db"))

	root.AddCommand(a.migrateCmd())
	root.AddCommand(a.recordCmd())
	root.AddCommand(a.summaryCmd())
	root.AddCommand(a.tokenCmd())
	return root
}

func (a *app) init(cfgFile string) error {
	a.v.AutomaticEnv()
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	a.cfg = config.FromViper(a.v)
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	// Logs go to stderr so command output stays machine readable.
	lvl, err := log.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = log.New(log.Config{
		Level:     lvl,
		Format:    a.cfg.LogFormat,
		Component: log.ComponentCLI,
		Output:    os.Stderr,
	})
	return nil
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
