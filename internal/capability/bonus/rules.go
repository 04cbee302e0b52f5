package bonus

// StackingRules maps a bonus type to whether same-type components stack.
// Types absent from the table follow the general rule and do not stack.
type StackingRules map[string]bool

// DefaultRules returns the standard d20 stacking table. Untyped bonuses
// (empty type) always stack.
func DefaultRules() StackingRules {
	return StackingRules{
		"":             true,
		"untyped":      true,
		"dodge":        true,
		"circumstance": true,
		"racial":       true,

		"alchemical":  false,
		"armor":       false,
		"competence":  false,
		"deflection":  false,
		"enhancement": false,
		"insight":     false,
		"luck":        false,
		"morale":      false,
		"natural":     false,
		"profane":     false,
		"resistance":  false,
		"sacred":      false,
		"shield":      false,
		"size":        false,
	}
}

// Stacks reports whether components of the given type sum together
func (r StackingRules) Stacks(bonusType string) bool {
	stacks, ok := r[bonusType]
	if !ok {
		return false
	}
	return stacks
}

// Merge overlays another table onto this one, returning the result. Used
// for ruleset overrides loaded at startup.
func (r StackingRules) Merge(overrides map[string]bool) StackingRules {
	merged := make(StackingRules, len(r)+len(overrides))
	for k, v := range r {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
