package cli

import (
	"github.com/spf13/cobra"

	"outagewatch/internal/app"
)

var (
	watchIP       string
	watchPort     int
	watchInterval int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for internet outages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.WatchOptions{}
		if cmd.Flags().Changed("ip") {
			opts.IP = &watchIP
		}
		if cmd.Flags().Changed("port") {
			opts.Port = &watchPort
		}
		if cmd.Flags().Changed("interval") {
			opts.Interval = &watchInterval
		}
		return getApp().Watch(cmd.Context(), opts)
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchIP, "ip", "i", "8.8.8.8", "IP address to check")
	watchCmd.Flags().IntVarP(&watchPort, "port", "p", 53, "Port to check")
	watchCmd.Flags().IntVarP(&watchInterval, "interval", "I", 5, "Interval in seconds")
}
