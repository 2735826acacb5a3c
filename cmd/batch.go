package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scentlab/accord/internal/model"
)

var (
	batchCSV  string
	batchSave bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze many formulas from a CSV file",
	Long:  "Reads rows of compound,ingredient,percent, groups them into formulas, and analyzes them concurrently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(batchCSV)
		if err != nil {
			return eris.Wrapf(err, "open %s", batchCSV)
		}
		defer f.Close()

		formulas, err := parseBatchCSV(f)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return processBatch(ctx, env, formulas, cfg.Batch.MaxConcurrent, batchSave)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "CSV file with compound,ingredient,percent rows")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "persist formulas and analyses")
	_ = batchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(batchCmd)
}

// batchFormula is one named formula assembled from CSV rows.
type batchFormula struct {
	Name  string
	Items []model.FormulaItem
}

// parseBatchCSV groups rows by compound name, preserving first-seen
// compound order and row order within each compound. A header row naming
// the columns is skipped if present.
func parseBatchCSV(r io.Reader) ([]batchFormula, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	byName := make(map[string]int)
	var formulas []batchFormula

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read csv")
		}
		line++

		name := strings.TrimSpace(record[0])
		label := strings.TrimSpace(record[1])
		if line == 1 && strings.EqualFold(name, "compound") {
			continue
		}
		if name == "" || label == "" {
			return nil, eris.Errorf("csv line %d: compound and ingredient are required", line)
		}

		percent, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "csv line %d: parse percent", line)
		}

		idx, ok := byName[name]
		if !ok {
			idx = len(formulas)
			byName[name] = idx
			formulas = append(formulas, batchFormula{Name: name})
		}
		formulas[idx].Items = append(formulas[idx].Items, model.FormulaItem{
			Label:         label,
			WeightPercent: percent,
		})
	}

	if len(formulas) == 0 {
		return nil, eris.New("csv contains no formulas")
	}
	return formulas, nil
}

// processBatch analyzes formulas concurrently. Individual failures are
// logged and counted without aborting the rest of the batch.
func processBatch(ctx context.Context, env *pipelineEnv, formulas []batchFormula, concurrency int, save bool) error {
	zap.L().Info("processing batch",
		zap.Int("formulas", len(formulas)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, formula := range formulas {
		g.Go(func() error {
			log := zap.L().With(zap.String("compound", formula.Name))

			outcome, err := env.Pipeline.Analyze(gctx, formula.Items)
			if err != nil {
				failed.Add(1)
				log.Error("analysis failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			if save {
				compound, err := env.Store.CreateCompound(gctx, formula.Name, "", formula.Items)
				if err == nil {
					err = saveAnalysis(gctx, env, compound.ID, outcome)
				}
				if err != nil {
					failed.Add(1)
					log.Error("persist failed", zap.Error(err))
					return nil
				}
			}

			succeeded.Add(1)
			log.Info("analysis complete",
				zap.Strings("olfactive_family", outcome.Result.OlfactiveFamily),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}
