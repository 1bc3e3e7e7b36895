package main

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nizami/nizami-backend/internal/bootstrap"
	"github.com/nizami/nizami-backend/internal/config"
	"github.com/nizami/nizami-backend/internal/gibberish"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Run the gibberish classifier rules on a text",
		Long:  "Classify prints the verdict, score, reasons and statistics of the rule-based pass. No LLM is consulted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())

			gcfg := bootstrap.GibberishConfig(cfg.Gibberish, logger)
			gcfg.LLMEnabled = false
			result := gibberish.Classify(context.Background(), strings.Join(args, " "), gcfg, nil)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
