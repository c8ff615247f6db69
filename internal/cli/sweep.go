package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewSweepCmd creates the sweep command
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire subscriptions past their renewal date",
		Long: `Run the subscription expiry sweep once. Every active subscription whose
next payment date has passed is marked expired and its account disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			expired, err := a.Subscriptions.Sweep(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d subscriptions\n", expired)
			return nil
		},
	}
}
