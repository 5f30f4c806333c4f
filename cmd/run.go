package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/urban-morph/internal/pipeline"
	"github.com/sells-group/urban-morph/internal/store"
)

var runCity string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run feature extraction for one city",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runCity != "" {
			cfg.Data.City = runCity
		}
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opener, projector, err := rasterBackend()
		if err != nil {
			return err
		}

		st, err := initStore(cmd)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		r, err := pipeline.New(cfg, opener, projector, st)
		if err != nil {
			return eris.Wrap(err, "init pipeline")
		}

		result, err := r.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("extraction complete",
			zap.String("city", cfg.Data.City),
			zap.String("run_id", result.RunID),
			zap.Strings("outputs", result.Outputs),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			RunID   string   `json:"run_id,omitempty"`
			Stats   any      `json:"stats"`
			Outputs []string `json:"outputs"`
		}{result.RunID, result.Stats, result.Outputs})
	},
}

// initStore opens the configured run store; it returns nil when persistence
// is disabled.
func initStore(cmd *cobra.Command) (store.Store, error) {
	st, err := store.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func init() {
	runCmd.Flags().StringVar(&runCity, "city", "", "city key; overrides data.city")
	rootCmd.AddCommand(runCmd)
}
