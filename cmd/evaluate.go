package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
		"go.uber.org/zap"

	"github.com/spigell/ingredient-matcher/internal/batch"
	"github.com/spigell/ingredient-matcher/internal/evaluation"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Report coverage and precision@1 of a match table",
	Run: func(cmd *cobra.Command, _ []string) {
		evaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("matches-file", "m", "", "match table produced by the batch command. Default is batch.output-file")
	evaluateCmd.Flags().StringP("supplier-file", "s", "", "supplier items table (item_id,raw_name)")
	evaluateCmd.Flags().Float64("high-confidence", evaluation.DefaultHighConfidence, "confidence (0-1) precision@1 is computed over")
	evaluateCmd.Flags().Bool("rows", false, "print every evaluated row")
}

func evaluate(cmd *cobra.Command) {
	logger, config := setup()

	matchesFile, _ := cmd.Flags().GetString("matches-file")
	if matchesFile == "" {
		matchesFile = config.Batch.OutputFile
	}
	highConfidence, _ := cmd.Flags().GetFloat64("high-confidence")
	withRows, _ := cmd.Flags().GetBool("rows")

	supplierFile, _ := cmd.Flags().GetString("supplier-file")
	if supplierFile == "" {
		supplierFile = config.Batch.SupplierFile
	}

	matches, err := batch.ReadMatches(matchesFile)
	if err != nil {
		logger.Fatal("loading matches", zap.Error(err))
	}

	items, err := batch.ReadItems(supplierFile)
	if err != nil {
		logger.Fatal("loading supplier items", zap.Error(err))
	}

	store := openStore(config, logger)

	report := evaluation.Evaluate(matches, items, store.Current().Ingredients(), highConfidence)

	logger.Info("coverage",
		zap.Int("total_items", report.Total),
		zap.Int("matched_items", report.Matched),
		zap.String("coverage", fmt.Sprintf("%.2f%%", report.Coverage)),
	)

	if report.HighConfidence == 0 {
		logger.Info("precision@1", zap.String("result", "N/A"), zap.Float64("threshold", highConfidence))
	} else {
		logger.Info("precision@1",
			zap.Int("high_confidence", report.HighConfidence),
			zap.Int("correct_matches", report.Correct),
			zap.String("precision", fmt.Sprintf("%.2f%%", report.Precision)),
			zap.Float64("threshold", highConfidence),
		)
	}

	if !withRows {
		report.Rows = nil
	}

	// do not bother error since the report is plain data
	pretty, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(pretty))
}
