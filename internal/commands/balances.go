package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/config"
	"github.com/mmynk/splitwiser/internal/ledger"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

func newBalancesCommand() *cobra.Command {
	var simplify bool

	cmd := &cobra.Command{
		Use:   "balances <group-id>",
		Short: "Print a group's balances and member summaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()

			return printBalances(cmd, store, args[0], simplify)
		},
	}

	cmd.Flags().BoolVar(&simplify, "simplify", false, "also print the simplified settlement plan")

	return cmd
}

func printBalances(cmd *cobra.Command, store storage.Store, groupID string, simplify bool) error {
	ctx := cmd.Context()
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	edges, err := ledger.New(store).Snapshot(ctx, groupID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n\n", group.Name, group.ID)

	if len(edges) == 0 {
		fmt.Fprintln(out, "All settled up.")
	} else {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DEBTOR\tCREDITOR\tAMOUNT")
		for _, e := range edges {
			fmt.Fprintf(w, "%s\t%s\t%s\n", name(e.DebtorName, e.DebtorID), name(e.CreditorName, e.CreditorID), e.Amount.StringFixed(2))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(out)
	if err := printSummaries(out, group, edges); err != nil {
		return err
	}

	if simplify {
		fmt.Fprintln(out)
		for _, p := range calculator.Simplify(edges) {
			fmt.Fprintf(out, "%s pays %s %s\n", p.From, p.To, p.Amount.StringFixed(2))
		}
	}
	return nil
}

func printSummaries(out io.Writer, group *models.Group, edges []models.Balance) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tOWES\tOWED\tNET")
	for i, s := range calculator.SummarizeAll(edges, group.MemberIDs()) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			name(group.Members[i].DisplayName, s.MemberID),
			s.Owed.StringFixed(2), s.OwedBy.StringFixed(2), s.Net.StringFixed(2))
	}
	return w.Flush()
}

func name(display, id string) string {
	if display != "" {
		return display
	}
	return id
}
