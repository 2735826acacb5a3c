package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scentlab/accord/internal/store"
)

var (
	compoundsSearch string
	compoundsLimit  int
)

var compoundsCmd = &cobra.Command{
	Use:   "compounds",
	Short: "Manage stored compounds",
}

var compoundsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored compounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		compounds, err := st.ListCompounds(ctx, store.CompoundFilter{
			Search: compoundsSearch,
			Limit:  compoundsLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tITEMS\tUPDATED")
		for _, c := range compounds {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				c.ID, c.Name, len(c.Items), c.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var compoundsShowCmd = &cobra.Command{
	Use:   "show <compound-id>",
	Short: "Show a compound with its latest analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		compound, err := st.GetCompound(ctx, args[0])
		if err != nil {
			return err
		}

		out := map[string]any{"compound": compound}
		if latest, err := st.LatestAnalysis(ctx, compound.ID); err == nil {
			out["latest_analysis"] = latest
		}
		return printJSON(out)
	},
}

var compoundsDeleteCmd = &cobra.Command{
	Use:   "delete <compound-id>",
	Short: "Delete a compound and its analyses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.DeleteCompound(ctx, args[0]); err != nil {
			return err
		}
		zap.L().Info("compound deleted", zap.String("compound_id", args[0]))
		return nil
	},
}

func init() {
	compoundsListCmd.Flags().StringVar(&compoundsSearch, "search", "", "filter by name substring")
	compoundsListCmd.Flags().IntVar(&compoundsLimit, "limit", 50, "max compounds to list")
	compoundsCmd.AddCommand(compoundsListCmd, compoundsShowCmd, compoundsDeleteCmd)
	rootCmd.AddCommand(compoundsCmd)
}
