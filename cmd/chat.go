package main

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/scentlab/accord/internal/store"
)

var chatCmd = &cobra.Command{
	Use:   "chat <compound-id> <question>",
	Short: "Ask a question about a stored compound",
	Long:  "Answers are grounded in the compound's most recent analysis, so analyze it first.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		compound, err := env.Store.GetCompound(ctx, args[0])
		if err != nil {
			return err
		}

		latest, err := env.Store.LatestAnalysis(ctx, compound.ID)
		if errors.Is(err, store.ErrNotFound) {
			return eris.Errorf("compound %s has no analysis yet, run analyze first", compound.ID)
		}
		if err != nil {
			return err
		}
		if latest.Result == nil {
			return eris.Errorf("latest analysis for compound %s has no structured result", compound.ID)
		}

		answer, err := env.Chat.Ask(ctx, compound, latest.Result, args[1])
		if err != nil {
			return err
		}

		fmt.Println(answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
