package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ingredient-matcher/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Match every supplier item in a table and write the match table",
	Run: func(_ *cobra.Command, _ []string) {
		runBatch()
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("supplier-file", "s", "", "supplier items table (item_id,raw_name)")
	batchCmd.Flags().StringP("output-file", "o", "", "match table to write (item_id,ingredient_id,confidence)")
	batchCmd.Flags().IntP("workers", "w", 0, "number of parallel workers. Default is the number of CPUs")

	viper.BindPFlag("batch.supplier-file", batchCmd.Flags().Lookup("supplier-file"))
	viper.BindPFlag("batch.output-file", batchCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("batch.workers", batchCmd.Flags().Lookup("workers"))
}

func runBatch() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := setup()
	logger.Info("starting the batch matching", zap.String("version", version))

	store := openStore(config, logger)

	items, err := batch.ReadItems(config.Batch.SupplierFile)
	if err != nil {
		logger.Fatal("loading supplier items", zap.Error(err))
	}

	logger.Info("loaded supplier items",
		zap.String("path", config.Batch.SupplierFile),
		zap.Int("count", len(items)),
	)

	runner := &batch.Runner{
		Workers:   config.Batch.Workers,
		Threshold: config.Threshold,
		Logger:    logger,
	}

	matches, err := runner.Run(ctx, store.Current(), items)
	if err != nil {
		logger.Fatal("matching supplier items", zap.Error(err))
	}

	if err := batch.WriteMatches(config.Batch.OutputFile, matches); err != nil {
		logger.Fatal("saving matches", zap.Error(err))
	}

	logger.Info("saved results", zap.String("path", config.Batch.OutputFile), zap.Int("count", len(matches)))
}
