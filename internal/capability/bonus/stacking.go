package bonus

import "sort"

// Component is one source's contribution to a derived numeric target
type Component struct {
	Value  float64 `json:"value"`
	Type   string  `json:"type"`
	Source string  `json:"source"`
}

// Annotated is a component plus whether it counted toward the total. A
// suppressed component names the source that shadowed it.
type Annotated struct {
	Component
	Applied      bool   `json:"applied"`
	SuppressedBy string `json:"suppressed_by,omitempty"`
}

// Breakdown explains a computed total: the base term, every component, and
// which of them were applied
type Breakdown struct {
	Total      float64     `json:"total"`
	Base       float64     `json:"base"`
	Components []Annotated `json:"components"`
}

// compute aggregates a component set under the stacking rules. The result
// depends only on the final set, never on insertion order: grouping,
// summation, and max-selection are commutative, and equal-value ties in a
// non-stacking group resolve to the lexicographically smallest source.
func compute(components []Component, base float64, rules StackingRules) Breakdown {
	byType := make(map[string][]Component)
	for _, c := range components {
		byType[c.Type] = append(byType[c.Type], c)
	}

	applied := make(map[Component]string, len(components))
	total := base
	for bonusType, group := range byType {
		if rules.Stacks(bonusType) {
			for _, c := range group {
				total += c.Value
				applied[c] = ""
			}
			continue
		}

		best := group[0]
		for _, c := range group[1:] {
			if c.Value > best.Value || (c.Value == best.Value && c.Source < best.Source) {
				best = c
			}
		}
		total += best.Value
		for _, c := range group {
			if c == best {
				applied[c] = ""
			} else {
				applied[c] = best.Source
			}
		}
	}

	annotated := make([]Annotated, 0, len(components))
	for _, c := range components {
		shadow, ok := applied[c]
		annotated = append(annotated, Annotated{
			Component:    c,
			Applied:      ok && shadow == "",
			SuppressedBy: shadow,
		})
	}
	sort.Slice(annotated, func(i, j int) bool {
		if annotated[i].Type != annotated[j].Type {
			return annotated[i].Type < annotated[j].Type
		}
		return annotated[i].Source < annotated[j].Source
	})

	return Breakdown{Total: total, Base: base, Components: annotated}
}
