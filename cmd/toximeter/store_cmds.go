package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mind-engage/toximeter/internal/app"
	"github.com/mind-engage/toximeter/internal/config"
	"github.com/mind-engage/toximeter/internal/logger"
)

func openApp(ctx context.Context, configFile string) (*app.App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, exitError(exitBadInput, "%v", err)
	}
	return app.Open(ctx, cfg, logger.NewStructured(cfg.LogLevel, cfg.LogFormat))
}

func newSeedCmd(configFile *string) *cobra.Command {
	var questions string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the stored question bank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Seed(cmd.Context(), questions)
			if err != nil {
				return exitError(exitBadInput, "seed: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d questions\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&questions, "questions", "", "question bank YAML (default: built-in bank)")
	return cmd
}

func newVerifyCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <assessment-id>",
		Short: "Recompute a stored assessment from its snapshot and compare",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			stored, err := a.Service.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, ok, err := a.Service.Rescore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stored:   %s %d%% (raw %g)\n", stored.Tier, stored.Percent, stored.RawScore)
			fmt.Fprintf(out, "rescored: %s %d%% (raw %g)\n", res.Tier, res.Percent, res.RawScore)
			if !ok {
				return exitError(exitFailure, "assessment %s does not reproduce", args[0])
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}
