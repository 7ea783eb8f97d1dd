package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/ingredient-matcher/internal/service"
)

var matchCmd = &cobra.Command{
	Use:   "match [raw name]",
	Short: "Match a single supplier item name. Without arguments an interactive prompt is started",
	Run: func(_ *cobra.Command, args []string) {
		matchItem(args)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func matchItem(args []string) {
	ctx := context.Background()
	logger, config := setup()

	svc := service.New(openStore(config, logger), config.Threshold, logger)

	if len(args) > 0 {
		if err := printMatch(ctx, svc, strings.Join(args, " ")); err != nil {
			logger.Fatal("matching", zap.Error(err))
		}
		return
	}

	prompt := promptui.Prompt{
		Label: "Supplier item (Ctrl+C to exit)",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return service.ErrInvalidInput
			}
			return nil
		},
	}

	for {
		raw, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("reading input", zap.Error(err))
		}

		if err := printMatch(ctx, svc, raw); err != nil {
			logger.Fatal("matching", zap.Error(err))
		}
	}
}

// printMatch writes the match as JSON to stdout. "No match" is a normal
// outcome and is printed, not returned.
func printMatch(ctx context.Context, svc *service.Service, raw string) error {
	resp, err := svc.Match(ctx, raw)
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidInput) {
		return writeStdoutJSON(map[string]string{"raw_name": raw, "detail": err.Error()})
	}
	if err != nil {
		return err
	}

	return writeStdoutJSON(resp)
}

func writeStdoutJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}
