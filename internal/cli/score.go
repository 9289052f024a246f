package cli

import (
	"context"
	"fmt"
	"strings"

	"cvcoach/internal/ats"
	"cvcoach/internal/common"
	"cvcoach/internal/phase"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/types"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [cv-file]",
	Short: "Score a CV against a target role like an ATS would",
	Long: `Score a CV (.txt, .md or .pdf) against a target role. Without a job
description a synthetic one is generated from the role's market area.

The model answers with a strict JSON envelope; when the call fails or the
answer cannot be parsed the deterministic heuristic score is used instead.
--offline skips the model entirely.`,
	Example: `  cvcoach score cv.pdf --role "Gerente de Vendas"
  cvcoach score cv.txt --role "Product Manager" --job vaga.txt --format markdown`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &scoreConfig.CommandConfig)
	},
	RunE: runScore,
}

var scoreConfig struct {
	common.CommandConfig
	role      string
	objective string
	jobFile   string
	offline   bool
}

func init() {
	outputFlags(scoreCmd, &scoreConfig.CommandConfig)
	scoreCmd.Flags().StringVar(&scoreConfig.role, "role", "", "Target role")
	scoreCmd.Flags().StringVar(&scoreConfig.objective, "objective", "", "Career objective (default: "+phase.DefaultObjective+")")
	scoreCmd.Flags().StringVar(&scoreConfig.jobFile, "job", "", "Job description file")
	scoreCmd.Flags().BoolVar(&scoreConfig.offline, "offline", false, "Use the heuristic score only")
	_ = scoreCmd.MarkFlagRequired("role")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	role, err := phase.ValidateTargetRole(scoreConfig.role)
	if err != nil {
		return err
	}
	objective := strings.TrimSpace(scoreConfig.objective)
	if objective == "" {
		objective = phase.DefaultObjective
	}

	var (
		scorer   *ats.Scorer
		caller   *telemetry.Caller
		counters = telemetry.NewCounters()
	)
	if scoreConfig.offline {
		scorer = ats.NewScorer(nil, logger, 0)
	} else {
		a, err := newApp(cfg, logger, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		scorer = a.router.Scorer()
		caller = a.router.Caller(counters, "cli")
	}

	err = common.RunFileCommand(cmd.Context(), logger, scoreConfig.CommandConfig, common.FileCommand[ats.Request, types.ATSResult]{
		Files: []string{args[0], scoreConfig.jobFile},
		CreateInput: func(contents []string) (ats.Request, error) {
			if strings.TrimSpace(contents[0]) == "" {
				return ats.Request{}, fmt.Errorf("the CV file %s is empty", args[0])
			}
			return ats.Request{
				CVText:     contents[0],
				TargetRole: role,
				Objective:  objective,
				JobText:    contents[1],
				Tag:        telemetry.TagOther,
			}, nil
		},
		LogDetails: func(input ats.Request, c common.CommandConfig) {
			logger.Info("Starting ATS scoring",
				"role", input.TargetRole,
				"cv_chars", len(input.CVText),
				"job_description", input.JobText != "",
				"offline", scoreConfig.offline,
				"output_format", c.OutputFormat)
		},
		Operation: func(ctx context.Context, req ats.Request) (types.ATSResult, error) {
			return scorer.Score(ctx, caller, req), nil
		},
		Counters: counters,
	})
	if err != nil {
		return fmt.Errorf("failed to score CV: %w", err)
	}
	logger.Info("ATS scoring completed successfully")
	return nil
}
