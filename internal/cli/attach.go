package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/guard"
	"github.com/yourname/daybar/internal/overlay"
	"github.com/yourname/daybar/internal/storage"
	"github.com/yourname/daybar/internal/tui"
)

var attachCountdownMinutes int

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach this terminal as a tab and render the overlay",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := cli.Attach(ctx); err != nil {
			return fmt.Errorf("attaching to daemon (is daybard running?): %w", err)
		}
		defer func() {
			dctx, dcancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer dcancel()
			_ = cli.Detach(dctx)
		}()
		if err := cli.Navigated(ctx); err != nil {
			return err
		}

		settings, _, err := storage.NewFileRepositories(cfg.SettingsFile, cfg.AccountFile, internal.NopLogger{})
		if err != nil {
			return err
		}
		defer closeStore(settings)

		g := guard.New(cli.Alive, internal.NopLogger{})
		surface := overlay.NewMemorySurface()
		surface.SetReady(true)
		ctrl := overlay.New(surface, settings, g, cli, internal.NopLogger{}, overlay.Options{})

		return tui.Run(ctrl, cli, attachCountdownMinutes)
	},
}

// closeStore flushes the debounced writers when the backend supports it.
func closeStore(s any) {
	if c, ok := s.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

func init() {
	attachCmd.Flags().IntVar(&attachCountdownMinutes, "countdown", 25, "countdown duration in minutes for the n key")
	rootCmd.AddCommand(attachCmd)
}
