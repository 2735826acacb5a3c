package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/scentlab/accord/internal/model"
	"github.com/scentlab/accord/internal/pipeline"
)

var (
	analyzeFile     string
	analyzeCompound string
	analyzeSave     bool
)

// formulaFile is the YAML layout accepted by --file.
type formulaFile struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	Items       []model.FormulaItem `yaml:"items"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a formula from a file or a stored compound",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if (analyzeFile == "") == (analyzeCompound == "") {
			return eris.New("exactly one of --file or --compound is required")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		switch {
		case analyzeFile != "":
			return analyzeFromFile(ctx, env)
		default:
			return analyzeStoredCompound(ctx, env, analyzeCompound)
		}
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "YAML formula file")
	analyzeCmd.Flags().StringVar(&analyzeCompound, "compound", "", "stored compound ID")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the formula and analysis")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeFromFile(ctx context.Context, env *pipelineEnv) error {
	formula, err := readFormulaFile(analyzeFile)
	if err != nil {
		return err
	}
	if len(formula.Items) == 0 {
		return eris.Errorf("formula %s has no items", analyzeFile)
	}

	outcome, err := env.Pipeline.Analyze(ctx, formula.Items)
	if err != nil {
		return err
	}

	if analyzeSave {
		compound, err := env.Store.CreateCompound(ctx, formula.Name, formula.Description, formula.Items)
		if err != nil {
			return err
		}
		if err := saveAnalysis(ctx, env, compound.ID, outcome); err != nil {
			return err
		}
		zap.L().Info("analysis saved", zap.String("compound_id", compound.ID))
	}

	return printJSON(outcome.Result)
}

func analyzeStoredCompound(ctx context.Context, env *pipelineEnv, id string) error {
	compound, err := env.Store.GetCompound(ctx, id)
	if err != nil {
		return err
	}
	if len(compound.Items) == 0 {
		return eris.Errorf("compound %s has no formula items", id)
	}

	outcome, err := env.Pipeline.Analyze(ctx, compound.Items)
	if err != nil {
		return err
	}
	if err := saveAnalysis(ctx, env, compound.ID, outcome); err != nil {
		return err
	}

	return printJSON(outcome.Result)
}

func readFormulaFile(path string) (*formulaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read formula %s", path)
	}
	var f formulaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "parse formula %s", path)
	}
	return &f, nil
}

func saveAnalysis(ctx context.Context, env *pipelineEnv, compoundID string, outcome *pipeline.Outcome) error {
	_, err := env.Store.CreateAnalysis(ctx, model.Analysis{
		CompoundID:    compoundID,
		Model:         env.Pipeline.Model(),
		PromptVersion: env.Pipeline.PromptVersion(),
		PromptText:    outcome.Prompt,
		RawResponse:   outcome.RawResponse,
		Result:        &outcome.Result,
	})
	return err
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	fmt.Println(string(out))
	return nil
}
