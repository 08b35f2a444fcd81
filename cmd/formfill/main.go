package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/formfill/internal/app"
	"github.com/danielpatrickdp/formfill/internal/config"
	"github.com/danielpatrickdp/formfill/internal/logging"
)

var version = "dev"

// #region flags

type rootFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

// #endregion flags

// #region main
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "formfill",
		Short:         "Fill form fields from previous submissions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", os.Getenv("FORMFILL_CONFIG"), "TOML config file")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "submission database (overrides config)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(
		newExtractCmd(flags),
		newMatchCmd(flags),
		newRecommendCmd(flags),
		newFeedbackCmd(flags),
		newSubmitCmd(flags),
		newImportCmd(flags),
		newCompleteCmd(flags),
		newStatsCmd(flags),
		newMCPCmd(flags),
		newServeCodecCmd(flags),
		newConfigCmd(flags),
	)
	return root
}

// #endregion main

// #region helpers

// loadConfig reads the config file and applies flag overrides.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.dbPath != "" {
		cfg.Store.Path = flags.dbPath
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.SetLevel(cfg.Log.Level)
	return cfg, nil
}

// openService loads config and opens the service. The caller closes it.
func openService(ctx context.Context, flags *rootFlags) (*app.Service, *config.Config, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.Open(ctx, cfg, app.WithLogger(logging.New("FORMFILL")))
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file argument, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// #endregion helpers
