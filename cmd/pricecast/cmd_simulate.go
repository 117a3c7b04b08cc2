package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/pricecast/internal/domain"
	logsetup "github.com/sawpanic/pricecast/internal/log"
)

// scenarioFlags describe an ad hoc scenario given on the command line.
type scenarioFlags struct {
	tier     string
	current  float64
	newPrice float64
	discount float64
	months   int
	segment  string
	target   string
	horizon  string

	horizonChurn bool
}

func (f *scenarioFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.tier, "tier", "", "Tier for an ad hoc scenario (skips the data file's scenarios)")
	fs.Float64Var(&f.current, "current", 0, "Current price (defaults to the tier's list price)")
	fs.Float64Var(&f.newPrice, "new-price", 0, "New price for a price change")
	fs.Float64Var(&f.discount, "discount", 0, "Promotion discount in percent")
	fs.IntVar(&f.months, "months", 0, "Promotion duration in months")
	fs.StringVar(&f.segment, "segment", "", "Target segment key acquisition|engagement|monetization")
	fs.StringVar(&f.target, "target", "", "Target cohort as axis=value")
	fs.StringVar(&f.horizon, "horizon", "", "Time horizon for the elasticity adjustment")
	fs.BoolVar(&f.horizonChurn, "horizon-churn", false, "Attach churn by weeks-after-change horizon")
}

// adHoc reports whether the flags describe a scenario.
func (f *scenarioFlags) adHoc() bool { return f.tier != "" }

func (f *scenarioFlags) scenario(snap *domain.Snapshot) (domain.Scenario, error) {
	tier := domain.TierID(f.tier)
	current := f.current
	if current == 0 {
		if t, ok := snap.Tier(tier); ok {
			current = t.Price
		}
	}

	var cfg domain.ScenarioConfig
	switch {
	case f.discount != 0 && f.newPrice != 0:
		return domain.Scenario{}, &domain.InvalidInputError{Field: "config", Reason: "use either --new-price or --discount"}
	case f.discount != 0:
		cfg = domain.Promotion{DiscountPct: f.discount, DurationMonths: f.months}
	default:
		cfg = domain.PriceChange{NewPrice: f.newPrice}
	}

	sc := domain.NewScenario(fmt.Sprintf("%s ad hoc", tier), tier, current, cfg)
	sc.Horizon = f.horizon
	switch {
	case f.segment != "" && f.target != "":
		return sc, &domain.InvalidInputError{Field: "target", Reason: "use either --segment or --target"}
	case f.segment != "":
		key, err := domain.ParseSegmentKey(f.segment)
		if err != nil {
			return sc, err
		}
		sc.Target = domain.SegmentTarget(key)
	case f.target != "":
		axis, value, ok := strings.Cut(f.target, "=")
		if !ok {
			return sc, &domain.InvalidInputError{Field: "target", Reason: fmt.Sprintf("%q is not axis=value", f.target)}
		}
		a, err := domain.ParseAxis(axis)
		if err != nil {
			return sc, err
		}
		sc.Target = domain.CohortTarget(a, value)
	}
	return sc, sc.Validate()
}

// batchOutput is one scenario's outcome in a batch run.
type batchOutput struct {
	ScenarioID string                   `json:"scenario_id"`
	Name       string                   `json:"name"`
	Result     *domain.SimulationResult `json:"result,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	flags := &scenarioFlags{}
	cmd := &cobra.Command{
		Use:   "simulate [scenario-id...]",
		Short: "Simulate scenarios from the data file or one ad hoc scenario",
		Long: `Simulate every scenario in the reference data (or the ids given), or a single
ad hoc scenario described by --tier and --new-price or --discount/--months.
Use --segment or --target to narrow the change to one segment or cohort.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			sim := a.simulator(flags.horizonChurn)

			if flags.adHoc() {
				if len(args) > 0 {
					return fmt.Errorf("scenario ids cannot be combined with --tier")
				}
				sc, err := flags.scenario(a.ref.Snapshot)
				if err != nil {
					return err
				}
				res, err := sim.Simulate(cmd.Context(), sc)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			}

			scenarios, err := a.scenarios(args)
			if err != nil {
				return err
			}
			steps := logsetup.NewStepLogger("simulate", []string{"simulate", "write"})
			steps.StartStep("simulate")
			items := sim.SimulateBatch(cmd.Context(), scenarios)
			out := make([]batchOutput, len(items))
			for i, it := range items {
				out[i] = batchOutput{ScenarioID: it.Scenario.ID, Name: it.Scenario.Name, Result: it.Result}
				if it.Err != nil {
					out[i].Error = it.Err.Error()
				}
			}
			steps.StartStep("write")
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				steps.Fail(err)
				return err
			}
			steps.Finish()
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
