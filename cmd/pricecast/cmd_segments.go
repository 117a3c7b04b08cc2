package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/segment"
)

type filterFlags struct {
	tier         string
	acquisition  []string
	engagement   []string
	monetization []string
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.tier, "tier", "", "Tier (empty for all tiers)")
	fs.StringSliceVar(&f.acquisition, "acquisition", nil, "Allowed acquisition values")
	fs.StringSliceVar(&f.engagement, "engagement", nil, "Allowed engagement values")
	fs.StringSliceVar(&f.monetization, "monetization", nil, "Allowed monetization values")
}

func (f *filterFlags) filter() segment.Filter {
	return segment.Filter{
		Tier:         domain.TierID(f.tier),
		Acquisition:  f.acquisition,
		Engagement:   f.engagement,
		Monetization: f.monetization,
	}
}

type segmentsOutput struct {
	Cohort   string             `json:"cohort"`
	KPIs     segment.KPISummary `json:"kpis"`
	Segments []domain.Segment   `json:"segments,omitempty"`
	Warnings []string           `json:"data_warnings,omitempty"`
}

func newSegmentsCmd(opts *rootOptions) *cobra.Command {
	flags := &filterFlags{}
	var summaryOnly bool

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Filter segments and aggregate their KPIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			f := flags.filter()
			segs := a.segments.FilterSegments(f)
			out := segmentsOutput{
				Cohort:   a.ctx.ActiveCohort(),
				KPIs:     segment.AggregateKPIs(segs),
				Warnings: a.ref.Warnings,
			}
			if !summaryOnly {
				out.Segments = segs
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Print only the KPI summary")

	cmd.AddCommand(newElasticityCmd(opts))
	return cmd
}

func newElasticityCmd(opts *rootOptions) *cobra.Command {
	var tier, key, axis string
	cmd := &cobra.Command{
		Use:   "elasticity",
		Short: "Look up one segment's axis elasticity with its fallback level",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			ax, err := domain.ParseAxis(axis)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.segments.Lookup(domain.TierID(tier), key, ax))
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&tier, "tier", "", "Tier")
	fs.StringVar(&key, "key", "", "Segment key acquisition|engagement|monetization")
	fs.StringVar(&axis, "axis", string(domain.AxisAcquisition), "Axis (acquisition|engagement|monetization)")
	_ = cmd.MarkFlagRequired("tier")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
