package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jose-cardos0/ONLYNEX/internal/app"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/collection"
)

// NewCollectionCmd creates the collection command
func NewCollectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collection <user> [modelID]",
		Short: "List the cards a user has saved",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			modelID := ""
			if len(args) == 2 {
				modelID = args[1]
			}
			return printCollection(cmd.Context(), a, args[0], modelID, cmd.OutOrStdout())
		},
	}
}

func printCollection(ctx context.Context, a *app.App, user, modelID string, out io.Writer) error {
	if modelID != "" {
		cards, err := a.Ledger.Query(ctx, user, modelID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d cards\n", modelID, cards.Len())
		for _, id := range cards.Slice() {
			fmt.Fprintf(out, "  - %s\n", id)
		}
		return nil
	}

	entries, err := a.Ledger.All(ctx, user)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "%s has no saved cards\n", user)
		return nil
	}

	models := make([]string, 0, len(entries))
	for id := range entries {
		models = append(models, id)
	}
	slices.Sort(models)
	fmt.Fprintf(out, "%s: %d cards saved\n", user, collection.CountCards(entries))
	for _, id := range models {
		entry := entries[id]
		fmt.Fprintf(out, "%s: %s (updated %s)\n", id, strings.Join(entry.SavedCards, ", "), entry.LastUpdated.Format(time.RFC3339))
	}
	return nil
}
