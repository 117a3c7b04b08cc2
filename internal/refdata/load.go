package refdata

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/pricecast/internal/domain"
)

// SegmentSumTolerance is how far a tier's segment visitor total may drift
// from its latest snapshot before a warning is raised.
const SegmentSumTolerance = 0.25

var scenarioNamespace = uuid.MustParse("0b7f5a2e-3c41-4d8e-b6a9-71e2c4d05f38")

// Result is a loaded snapshot plus the non-fatal findings of validation.
type Result struct {
	Snapshot *domain.Snapshot
	Warnings []string
}

// Load reads and validates the document at path.
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference data: %w", err)
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("reference data %s: %w", path, err)
	}
	log.Info().
		Str("path", path).
		Int("tiers", len(res.Snapshot.Tiers)).
		Int("segments", len(res.Snapshot.Segments)).
		Int("scenarios", len(res.Snapshot.Scenarios)).
		Int("warnings", len(res.Warnings)).
		Msg("Reference data loaded")
	return res, nil
}

// Parse decodes a YAML or JSON document into a snapshot.
func Parse(data []byte) (*Result, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return Build(doc)
}

// Build validates a decoded document and converts it. Structural problems
// are errors; a segment table that does not add up to its tier is a warning.
func Build(doc Document) (*Result, error) {
	s := &domain.Snapshot{
		Tiers:             make(map[domain.TierID]domain.Tier, len(doc.Tiers)),
		SegmentElasticity: make(map[domain.TierID]map[string]domain.AxisElasticity),
		Cohorts:           make(map[string]domain.CohortProfile, len(doc.Cohorts)),
	}
	res := &Result{Snapshot: s, Warnings: []string{}}

	if err := buildTiers(s, doc); err != nil {
		return nil, err
	}
	if err := buildCohorts(s, doc.Cohorts); err != nil {
		return nil, err
	}
	if err := buildSegmentElasticity(s, doc.SegmentElasticity); err != nil {
		return nil, err
	}
	if err := buildSegments(s, doc.SegmentKPIs); err != nil {
		return nil, err
	}
	if err := buildScenarios(s, doc.Scenarios); err != nil {
		return nil, err
	}

	for _, id := range domain.SortedTierIDs(s.Tiers) {
		t := s.Tiers[id]
		if !t.Hypothetical && t.Elasticity.BaseElasticity == 0 {
			res.warn("tier %s has no base elasticity", id)
		}
	}
	checkSegmentSums(res)
	return res, nil
}

func (r *Result) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Warn().Msg(msg)
	r.Warnings = append(r.Warnings, msg)
}

func invalid(field, format string, args ...interface{}) error {
	return &domain.InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func buildTiers(s *domain.Snapshot, doc Document) error {
	for i, td := range doc.Tiers {
		if td.ID == "" {
			return invalid("tiers", "tier %d has no id", i)
		}
		if _, dup := s.Tiers[td.ID]; dup {
			return invalid("tiers", "duplicate tier %s", td.ID)
		}
		if td.Price < 0 || math.IsNaN(td.Price) {
			return invalid("tiers", "tier %s has invalid price %v", td.ID, td.Price)
		}
		t := domain.Tier{ID: td.ID, Name: td.Name, Price: td.Price, Hypothetical: td.Hypothetical}
		if t.Name == "" {
			t.Name = string(td.ID)
		}
		for j, sd := range td.Snapshots {
			snap, err := convertSnapshot(sd)
			if err != nil {
				return invalid("tiers", "tier %s snapshot %d: %v", td.ID, j, err)
			}
			t.Snapshots = append(t.Snapshots, snap)
		}
		s.Tiers[td.ID] = t
	}

	for id, p := range doc.Elasticity {
		t, ok := s.Tiers[id]
		if !ok {
			return &domain.UnknownTierError{Tier: id}
		}
		for axis := range p.CohortElasticity {
			if _, err := domain.ParseAxis(string(axis)); err != nil {
				return invalid("elasticity", "tier %s: %v", id, err)
			}
		}
		if p.PriceRange.Current == 0 {
			p.PriceRange.Current = t.Price
		}
		t.Elasticity = p
		s.Tiers[id] = t
	}
	return nil
}

func convertSnapshot(sd SnapshotDoc) (domain.DailySnapshot, error) {
	date, err := parseDate(sd.Date)
	if err != nil {
		return domain.DailySnapshot{}, err
	}
	if sd.ActiveVisitors < 0 {
		return domain.DailySnapshot{}, fmt.Errorf("negative active visitors %d", sd.ActiveVisitors)
	}
	if sd.ReturnRate < 0 || sd.ReturnRate > 1 {
		return domain.DailySnapshot{}, fmt.Errorf("return rate %v outside [0, 1]", sd.ReturnRate)
	}
	if sd.NewRegistrations < 0 {
		return domain.DailySnapshot{}, fmt.Errorf("negative new registrations %v", sd.NewRegistrations)
	}
	return domain.DailySnapshot{
		Date:             date,
		ActiveVisitors:   sd.ActiveVisitors,
		ReturnRate:       sd.ReturnRate,
		NewRegistrations: sd.NewRegistrations,
		Revenue:          sd.Revenue,
		ARPV:             sd.ARPV,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func buildCohorts(s *domain.Snapshot, cohorts map[string]domain.CohortProfile) error {
	if _, ok := cohorts[domain.BaselineCohort]; !ok {
		return invalid("cohorts", "the %q cohort is required", domain.BaselineCohort)
	}
	for id, c := range cohorts {
		c.ID = id
		if c.Name == "" {
			c.Name = id
		}
		if c.TimeLag != nil {
			for _, w := range c.TimeLag.Weights() {
				if w < 0 {
					return invalid("cohorts", "cohort %s has a negative time lag weight", id)
				}
			}
		}
		s.Cohorts[id] = c
	}
	return nil
}

func buildSegmentElasticity(s *domain.Snapshot, tables map[domain.TierID]SegmentElasticityDoc) error {
	for tier, table := range tables {
		if _, ok := s.Tiers[tier]; !ok {
			return &domain.UnknownTierError{Tier: tier}
		}
		records := make(map[string]domain.AxisElasticity, len(table.Segments))
		for raw, rec := range table.Segments {
			key, err := domain.ParseSegmentKey(raw)
			if err != nil {
				return fmt.Errorf("segment elasticity %s: %w", tier, err)
			}
			records[key.String()] = domain.AxisElasticity{
				Acquisition: rec.Acquisition.value(),
				Churn:       rec.Churn.value(),
				Migration:   rec.Migration.value(),
			}
		}
		s.SegmentElasticity[tier] = records
	}
	return nil
}

func (v *ElasticityValue) value() *float64 {
	if v == nil || v.Elasticity == nil {
		return nil
	}
	e := *v.Elasticity
	return &e
}

func buildSegments(s *domain.Snapshot, rows []SegmentKPIDoc) error {
	seen := make(map[domain.TierID]map[string]bool)
	for i, row := range rows {
		if _, ok := s.Tiers[row.Tier]; !ok {
			return fmt.Errorf("segment row %d: %w", i, &domain.UnknownTierError{Tier: row.Tier})
		}
		key, err := domain.ParseSegmentKey(row.CompositeKey)
		if err != nil {
			return fmt.Errorf("segment row %d: %w", i, err)
		}
		if row.Visitors < 0 {
			return invalid("segment_kpis", "row %d (%s) has negative visitors", i, key)
		}
		if row.AvgReturnRate < 0 || row.AvgReturnRate > 1 {
			return invalid("segment_kpis", "row %d (%s) return rate %v outside [0, 1]", i, key, row.AvgReturnRate)
		}
		if row.AvgARPV < 0 || row.AvgUsageHours < 0 || row.AvgCAC < 0 {
			return invalid("segment_kpis", "row %d (%s) has a negative average", i, key)
		}
		if seen[row.Tier] == nil {
			seen[row.Tier] = make(map[string]bool)
		}
		if seen[row.Tier][key.String()] {
			return invalid("segment_kpis", "duplicate segment %s in tier %s", key, row.Tier)
		}
		seen[row.Tier][key.String()] = true

		s.Segments = append(s.Segments, domain.Segment{
			Tier:          row.Tier,
			Key:           key,
			Visitors:      row.Visitors,
			AvgReturnRate: row.AvgReturnRate,
			AvgARPV:       row.AvgARPV,
			AvgUsageHours: row.AvgUsageHours,
			AvgCAC:        row.AvgCAC,
		})
	}
	return nil
}

func buildScenarios(s *domain.Snapshot, docs []ScenarioDoc) error {
	for i, sd := range docs {
		sc, err := convertScenario(i, sd)
		if err != nil {
			return fmt.Errorf("scenario %d: %w", i, err)
		}
		if err := sc.Validate(); err != nil {
			return fmt.Errorf("scenario %d (%s): %w", i, sc.Name, err)
		}
		s.Scenarios = append(s.Scenarios, sc)
	}
	return nil
}

func convertScenario(i int, sd ScenarioDoc) (domain.Scenario, error) {
	sc := domain.Scenario{
		ID:           sd.ID,
		Name:         sd.Name,
		Tier:         sd.Tier,
		CurrentPrice: sd.CurrentPrice,
		Constraints:  sd.Constraints,
		Category:     sd.Category,
		Horizon:      sd.Horizon,
	}
	if sc.Name == "" {
		sc.Name = fmt.Sprintf("scenario %d", i+1)
	}
	if sc.ID == "" {
		sc.ID = uuid.NewSHA1(scenarioNamespace, []byte(fmt.Sprintf("%d|%s|%s", i, sc.Name, sc.Tier))).String()
	}

	switch strings.ReplaceAll(sd.Config.Type, "-", "_") {
	case domain.KindPriceChange, "":
		sc.Config = domain.PriceChange{NewPrice: sd.Config.NewPrice}
	case domain.KindPromotion:
		sc.Config = domain.Promotion{DiscountPct: sd.Config.DiscountPct, DurationMonths: sd.Config.DurationMonths}
	default:
		return sc, invalid("config", "unknown scenario type %q", sd.Config.Type)
	}

	if t := sd.Target; t != nil {
		switch {
		case t.Segment != "":
			key, err := domain.ParseSegmentKey(t.Segment)
			if err != nil {
				return sc, err
			}
			sc.Target = domain.SegmentTarget(key)
		case t.CohortAxis != "":
			axis, err := domain.ParseAxis(t.CohortAxis)
			if err != nil {
				return sc, err
			}
			sc.Target = domain.CohortTarget(axis, t.CohortValue)
		default:
			return sc, invalid("target", "target names neither a segment nor a cohort")
		}
	}
	return sc, nil
}

// checkSegmentSums warns when a tier's segments do not add up to its latest
// snapshot. The table is kept as loaded either way.
func checkSegmentSums(res *Result) {
	sums := make(map[domain.TierID]int64)
	for _, seg := range res.Snapshot.Segments {
		sums[seg.Tier] += seg.Visitors
	}
	tiers := make([]domain.TierID, 0, len(sums))
	for id := range sums {
		tiers = append(tiers, id)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })

	for _, id := range tiers {
		snap, ok := res.Snapshot.Tiers[id].LatestSnapshot()
		if !ok || snap.ActiveVisitors == 0 {
			continue
		}
		drift := math.Abs(float64(sums[id]-snap.ActiveVisitors)) / float64(snap.ActiveVisitors)
		if drift > SegmentSumTolerance {
			res.warn("tier %s segments sum to %d visitors, %.0f%% off the snapshot's %d", id, sums[id], drift*100, snap.ActiveVisitors)
		}
	}
}
