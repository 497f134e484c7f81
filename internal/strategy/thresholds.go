// Package strategy implements the deterministic decision layer: archetype
// classification, composite scoring, and the dual-status decision matrix.
package strategy

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/adspend-cli/internal/model"
)

// Weights holds the five scoring-component weights for one archetype.
type Weights struct {
	ROASVsThreshold float64 `yaml:"roas_vs_threshold"`
	Efficiency      float64 `yaml:"efficiency"`
	VolumeTrend     float64 `yaml:"volume_trend"`
	ImpressionShare float64 `yaml:"impression_share"`
	MarginHealth    float64 `yaml:"margin_health"`
}

// Thresholds is the immutable benchmark record for one archetype.
type Thresholds struct {
	Label           string  `yaml:"label"`
	ROASFloor       float64 `yaml:"roas_floor"`
	ROASGood        float64 `yaml:"roas_good"`
	ROASGreat       float64 `yaml:"roas_great"`
	CVRFloor        float64 `yaml:"cvr_floor"`
	CPACeiling      float64 `yaml:"cpa_ceiling"`
	MinSpendForEval float64 `yaml:"min_spend_for_eval"`
	Weights         Weights `yaml:"weights"`
}

// ThresholdSet maps every archetype to its thresholds. Built once at startup
// and passed explicitly; callers never mutate it.
type ThresholdSet map[model.StrategyType]Thresholds

// For returns the thresholds for the given archetype, falling back to the
// unknown archetype for unrecognized tags.
func (ts ThresholdSet) For(st model.StrategyType) Thresholds {
	if t, ok := ts[st]; ok {
		return t
	}
	return ts[model.StrategyUnknown]
}

// DefaultThresholds returns the built-in benchmark table.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		model.StrategyHighConsideration: {
			Label:           "High Consideration",
			ROASFloor:       1.5,
			ROASGood:        2.5,
			ROASGreat:       4.0,
			CVRFloor:        0.005,
			CPACeiling:      120,
			MinSpendForEval: 200,
			Weights: Weights{
				ROASVsThreshold: 30,
				Efficiency:      20,
				VolumeTrend:     15,
				ImpressionShare: 10,
				MarginHealth:    25,
			},
		},
		model.StrategyFastTurn: {
			Label:           "Fast Turn",
			ROASFloor:       2.5,
			ROASGood:        4.0,
			ROASGreat:       6.0,
			CVRFloor:        0.02,
			CPACeiling:      25,
			MinSpendForEval: 100,
			Weights: Weights{
				ROASVsThreshold: 40,
				Efficiency:      25,
				VolumeTrend:     15,
				ImpressionShare: 5,
				MarginHealth:    15,
			},
		},
		model.StrategyBrandDefense: {
			Label:           "Brand Defense",
			ROASFloor:       0.8,
			ROASGood:        1.5,
			ROASGreat:       2.5,
			CVRFloor:        0.03,
			CPACeiling:      15,
			MinSpendForEval: 50,
			Weights: Weights{
				ROASVsThreshold: 15,
				Efficiency:      15,
				VolumeTrend:     10,
				ImpressionShare: 35,
				MarginHealth:    25,
			},
		},
		model.StrategyProspecting: {
			Label:           "Prospecting",
			ROASFloor:       0.5,
			ROASGood:        1.2,
			ROASGreat:       2.0,
			CVRFloor:        0.002,
			CPACeiling:      80,
			MinSpendForEval: 300,
			Weights: Weights{
				ROASVsThreshold: 10,
				Efficiency:      15,
				VolumeTrend:     25,
				ImpressionShare: 20,
				MarginHealth:    30,
			},
		},
		model.StrategyUnknown: {
			Label:           "Unknown",
			ROASFloor:       2.0,
			ROASGood:        3.0,
			ROASGreat:       4.0,
			CVRFloor:        0.01,
			CPACeiling:      50,
			MinSpendForEval: 100,
			Weights: Weights{
				ROASVsThreshold: 30,
				Efficiency:      20,
				VolumeTrend:     15,
				ImpressionShare: 15,
				MarginHealth:    20,
			},
		},
	}
}

// LoadThresholds builds the threshold table, merging per-archetype overrides
// from the given YAML file over the defaults. An empty path returns the
// defaults unchanged.
func LoadThresholds(path string) (ThresholdSet, error) {
	ts := DefaultThresholds()
	if path == "" {
		return ts, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "strategy: read thresholds file %s", path)
	}

	var overrides map[model.StrategyType]Thresholds
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, eris.Wrap(err, "strategy: parse thresholds file")
	}

	for st, t := range overrides {
		if _, ok := ts[st]; !ok {
			return nil, eris.Errorf("strategy: unknown archetype %q in thresholds file", st)
		}
		ts[st] = t
	}
	return ts, nil
}
