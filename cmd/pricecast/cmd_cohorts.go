package main

import (
	"github.com/spf13/cobra"

	"github.com/sawpanic/pricecast/internal/cohort"
	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/lagmodel"
)

type cohortsOutput struct {
	Tier         domain.TierID           `json:"tier"`
	Axis         domain.Axis             `json:"axis"`
	Cohort       string                  `json:"active_cohort"`
	Cohorts      []cohort.Cohort         `json:"cohorts"`
	Lag          []cohort.LagBucket      `json:"churn_lag,omitempty"`
	HorizonChurn []lagmodel.SegmentChurn `json:"horizon_churn,omitempty"`
}

func newCohortsCmd(opts *rootOptions) *cobra.Command {
	flags := &filterFlags{}
	var (
		axis        string
		lagTotal    float64
		priceChange float64
	)

	cmd := &cobra.Command{
		Use:   "cohorts",
		Short: "Roll a tier's segments up into cohorts along one axis",
		Long: `Group a tier's segments by one axis value and report size, weighted
elasticity, return rate and ARPV per cohort. With --lag-total, a churn
response is also spread over the weekly windows of the active cohort's
time-lag profile. With --price-change, each cohort gets a churn forecast
per weeks-after-change window scaled by its elasticity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			ax, err := domain.ParseAxis(axis)
			if err != nil {
				return err
			}
			tier := domain.TierID(flags.tier)
			t, ok := a.ref.Snapshot.Tier(tier)
			if !ok {
				return &domain.UnknownTierError{Tier: tier}
			}

			out := cohortsOutput{
				Tier:    tier,
				Axis:    ax,
				Cohort:  a.ctx.ActiveCohort(),
				Cohorts: a.cohorts.Cohorts(tier, ax, flags.filter()),
			}
			if cmd.Flags().Changed("lag-total") {
				out.Lag = cohort.DistributeLag(lagTotal, a.cohorts.LagProfile())
			}
			if cmd.Flags().Changed("price-change") {
				req := lagmodel.Request{PriceChangePct: priceChange}
				if snap, ok := t.LatestSnapshot(); ok {
					req.BaselineChurn = 1 - snap.ReturnRate
				}
				inputs := make([]lagmodel.SegmentInput, len(out.Cohorts))
				for i, c := range out.Cohorts {
					inputs[i] = lagmodel.SegmentInput{Name: c.Value, Size: c.Size, Elasticity: c.Elasticity}
				}
				if out.HorizonChurn, err = a.churn.BySegment(req, inputs); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	flags.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("tier")
	fs := cmd.Flags()
	fs.StringVar(&axis, "axis", string(domain.AxisAcquisition), "Axis to group by (acquisition|engagement|monetization)")
	fs.Float64Var(&lagTotal, "lag-total", 0, "Churn response to spread over the active cohort's lag profile")
	fs.Float64Var(&priceChange, "price-change", 0, "Price change in percent for per-cohort churn by horizon")
	return cmd
}
