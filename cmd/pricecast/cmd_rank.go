package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/pricecast/internal/decision"
	"github.com/sawpanic/pricecast/internal/domain"
	logsetup "github.com/sawpanic/pricecast/internal/log"
)

func newRankCmd(opts *rootOptions) *cobra.Command {
	var (
		objective    string
		churnCap     float64
		revenueFloor float64
		visitorFloor int64
		mixTarget    float64
		horizonChurn bool
	)

	cmd := &cobra.Command{
		Use:   "rank [scenario-id...]",
		Short: "Simulate saved scenarios and rank them against an objective",
		Long: fmt.Sprintf(`Simulate the data file's scenarios (or the ids given), drop those failing
the constraints, and print the top results with scores, risk and rationale.

Objectives: %s, %s, %s, %s`, decision.GrowthMax, decision.RevenueMax, decision.ChurnCapped, decision.MixTargeted),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := decision.ParseObjective(objective)
			if err != nil {
				return err
			}
			var c decision.Constraints
			fs := cmd.Flags()
			if fs.Changed("churn-cap") {
				c.ChurnCap = &churnCap
			}
			if fs.Changed("revenue-floor") {
				c.RevenueFloor = &revenueFloor
			}
			if fs.Changed("visitor-floor") {
				c.VisitorFloor = &visitorFloor
			}
			if fs.Changed("mix-target") {
				c.MixTarget = &mixTarget
			}

			steps := logsetup.NewStepLogger("rank", []string{"load", "simulate", "rank", "write"})
			steps.StartStep("load")
			a, err := opts.newApp()
			if err != nil {
				steps.Fail(err)
				return err
			}
			scenarios, err := a.scenarios(args)
			if err != nil {
				steps.Fail(err)
				return err
			}

			steps.StartStep("simulate")
			var saved []*domain.SimulationResult
			for _, it := range a.simulator(horizonChurn).SimulateBatch(cmd.Context(), scenarios) {
				if it.Err != nil {
					log.Warn().Err(it.Err).Str("scenario", it.Scenario.ID).Msg("Scenario left out of ranking")
					continue
				}
				saved = append(saved, it.Result)
			}

			steps.StartStep("rank")
			ranking, err := a.decision.Rank(saved, o, c)
			if err != nil {
				steps.Fail(err)
				return err
			}

			steps.StartStep("write")
			if err := writeJSON(cmd.OutOrStdout(), ranking); err != nil {
				steps.Fail(err)
				return err
			}
			steps.Finish()
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&objective, "objective", string(decision.GrowthMax), "Ranking objective")
	fs.Float64Var(&churnCap, "churn-cap", 0, "Maximum churn rate increase as a rate delta (0.02 = 2pp)")
	fs.Float64Var(&revenueFloor, "revenue-floor", 0, "Minimum forecast revenue")
	fs.Int64Var(&visitorFloor, "visitor-floor", 0, "Minimum forecast visitors")
	fs.Float64Var(&mixTarget, "mix-target", 0, "Target tier share of all visitors for mix-targeted")
	fs.BoolVar(&horizonChurn, "horizon-churn", false, "Attach churn by weeks-after-change horizon")
	return cmd
}
