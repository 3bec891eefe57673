package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"outagewatch/internal/app"
	"outagewatch/internal/report"
)

var (
	recentLimit int
)

var recentCmd = &cobra.Command{
	Use:   "recent [N]",
	Short: "View recent internet outages",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := resolveRecentLimit(args, recentLimit, cmd.Flags().Changed("limit"))
		if err != nil {
			return err
		}
		return getApp().Recent(cmd.Context(), app.RecentOptions{Limit: limit})
	},
}

func init() {
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "l", report.DefaultRecentLimit, "Amount of outages to display")
}

// resolveRecentLimit returns 0 when neither the argument nor the flag was
// given so the configured default applies.
func resolveRecentLimit(args []string, flagValue int, flagSet bool) (int, error) {
	limit := 0
	if flagSet {
		limit = flagValue
	}
	if len(args) == 1 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, fmt.Errorf("%w: N must be an integer, got %q", report.ErrInvalidArgument, args[0])
		}
		limit = parsed
		flagSet = true
	}
	if flagSet && limit <= 0 {
		return 0, fmt.Errorf("%w: N must be greater than zero", report.ErrInvalidArgument)
	}
	return limit, nil
}
