package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/progress"
	"github.com/yourname/daybar/internal/storage"
)

var (
	hoursStart string
	hoursEnd   string
)

var hoursCmd = &cobra.Command{
	Use:   "hours",
	Short: "Show or set the workday window",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, _, err := storage.NewFileRepositories(cfg.SettingsFile, cfg.AccountFile, internal.NopLogger{})
		if err != nil {
			return err
		}
		defer closeStore(settings)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if hoursStart == "" && hoursEnd == "" {
			wh, err := settings.WorkHours(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("work hours: %s to %s\n", wh.StartTime, wh.EndTime)
			return nil
		}

		wh, err := settings.WorkHours(ctx)
		if err != nil {
			return err
		}
		if hoursStart != "" {
			wh.StartTime = hoursStart
		}
		if hoursEnd != "" {
			wh.EndTime = hoursEnd
		}
		if _, err := progress.ParseClock(wh.StartTime); err != nil {
			return fmt.Errorf("invalid start %q: %w", wh.StartTime, err)
		}
		if _, err := progress.ParseClock(wh.EndTime); err != nil {
			return fmt.Errorf("invalid end %q: %w", wh.EndTime, err)
		}

		// The daemon watches the settings file and re-broadcasts on its own;
		// no daemon round-trip is needed here.
		if err := settings.SaveWorkHours(ctx, wh); err != nil {
			return err
		}
		cmd.Printf("work hours set: %s to %s\n", wh.StartTime, wh.EndTime)
		return nil
	},
}

func init() {
	hoursCmd.Flags().StringVar(&hoursStart, "start", "", `start of the workday ("HH:MM")`)
	hoursCmd.Flags().StringVar(&hoursEnd, "end", "", `end of the workday ("HH:MM")`)
	rootCmd.AddCommand(hoursCmd)
}
