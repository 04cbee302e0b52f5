// Package bonus implements the bonus aggregation engine mounted at
// /dev/bonus.
//
// Bonuses from independent sources combine into a single number under the
// domain's stacking rules: components of a stacking type (dodge,
// circumstance, untyped) all sum together, while for a non-stacking type
// (armor, enhancement, resistance, ...) only the highest-value component
// counts. Equal-value ties within a non-stacking type resolve to the
// lexicographically smallest source, so the computation is deterministic
// and independent of the order components were added.
//
// Components live in entity properties and are read and written through
// kernel syscalls, so they persist with the sheet and every mutation flows
// through the change notifier.
package bonus
