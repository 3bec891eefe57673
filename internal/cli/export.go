package cli

import (
	"github.com/spf13/cobra"

	"outagewatch/internal/app"
)

var (
	exportPNGPath string
)

var exportCmd = &cobra.Command{
	Use:   "export [PATH]",
	Short: "Export internet outages to a CSV file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{PNGPath: exportPNGPath}
		if len(args) == 1 {
			opts.CSVPath = args[0]
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write a monthly downtime PNG chart")
}
