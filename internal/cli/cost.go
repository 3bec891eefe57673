package cli

import (
	"github.com/spf13/cobra"

	"outagewatch/internal/app"
)

var (
	costCurrency string
)

var costCmd = &cobra.Command{
	Use:   "cost RATE",
	Short: "Calculate cost impact of internet outages for a monthly rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Cost(cmd.Context(), app.CostOptions{
			Rate:     args[0],
			Currency: costCurrency,
		})
	},
}

func init() {
	costCmd.Flags().StringVarP(&costCurrency, "currency", "c", "", "Currency symbol (defaults to config)")
}
