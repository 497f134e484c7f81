package strategy

import (
	"strings"

	"github.com/sells-group/adspend-cli/internal/model"
)

// Name patterns for classification, matched against the lowercased campaign
// name. Slice order is priority order and must be preserved.
var (
	unknownPatterns     = []string{"zombie", " old", "test campaign"}
	prospectingPatterns = []string{"demand gen", "prospecting", "awareness", "local", "store visit"}
	fastTurnPatterns    = []string{"filter", "accessori", "part", "hardware all"}
)

// Platform types that indicate top-of-funnel prospecting regardless of name.
var prospectingTypes = map[string]bool{
	"DEMAND_GEN": true,
	"DISPLAY":    true,
	"VIDEO":      true,
}

// AOV boundaries separating fast-turn consumables from considered purchases.
const (
	fastTurnAOVCeiling        = 150
	highConsiderationAOVFloor = 300
)

// Classify maps a campaign to its strategic archetype. Rules are evaluated in
// priority order and the first match wins:
//
//  1. zombie / old / test campaigns → unknown
//  2. demand-gen, display, or video platform types, or a prospecting name → prospecting
//  3. search platform type or "search" in the name → brand_defense
//  4. fast-turn name patterns or AOV under $150 → fast_turn
//  5. AOV of $300+ or performance-max / shopping platform types → high_consideration
//  6. anything else → unknown
//
// A nil AOV carries no signal and falls through to later rules.
func Classify(campaignName, campaignType string, aov *float64) model.StrategyType {
	name := strings.ToLower(campaignName)
	ctype := strings.ToUpper(campaignType)

	for _, pat := range unknownPatterns {
		if strings.Contains(name, pat) {
			return model.StrategyUnknown
		}
	}

	if prospectingTypes[ctype] {
		return model.StrategyProspecting
	}
	for _, pat := range prospectingPatterns {
		if strings.Contains(name, pat) {
			return model.StrategyProspecting
		}
	}

	if ctype == "SEARCH" || strings.Contains(name, "search") {
		return model.StrategyBrandDefense
	}

	for _, pat := range fastTurnPatterns {
		if strings.Contains(name, pat) {
			return model.StrategyFastTurn
		}
	}
	if aov != nil && *aov < fastTurnAOVCeiling {
		return model.StrategyFastTurn
	}

	if aov != nil && *aov >= highConsiderationAOVFloor {
		return model.StrategyHighConsideration
	}
	if ctype == "PERFORMANCE_MAX" || ctype == "SHOPPING" {
		return model.StrategyHighConsideration
	}

	return model.StrategyUnknown
}
