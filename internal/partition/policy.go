// Package partition splits the pending signups of a time slot into dinner
// groups. Everything here is a pure transformation: no I/O, no logging.
package partition

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// DinnerType selects the group-size policy for a time slot.
type DinnerType int

const (
	Singles DinnerType = iota + 1
	Regular
)

// AllDinnerTypes lists every dinner-type the matcher knows about.
// A policy table must cover all of them.
var AllDinnerTypes = []DinnerType{Singles, Regular}

// String returns the wire name of the dinner-type ("singles", "regular").
func (d DinnerType) String() string {
	switch d {
	case Singles:
		return "singles"
	case Regular:
		return "regular"
	default:
		return fmt.Sprintf("DinnerType(%d)", int(d))
	}
}

// ParseDinnerType converts a stored or user-supplied dinner-type name into a
// DinnerType. Names are matched case-insensitively after trimming spaces.
func ParseDinnerType(name string) (DinnerType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "singles":
		return Singles, nil
	case "regular":
		return Regular, nil
	default:
		return 0, &UnknownDinnerTypeError{DinnerType: name}
	}
}

// GroupSizePolicy bounds the size of the groups formed for one dinner-type.
type GroupSizePolicy struct {
	Min         int
	Max         int
	Ideal       int
	Description string
}

// PolicyTable maps every dinner-type to its validated GroupSizePolicy.
// It is built once at startup and read-only afterwards.
type PolicyTable struct {
	policies map[DinnerType]GroupSizePolicy
}

// DefaultPolicies returns the built-in policies: pairs for singles dinners and
// tables of four to six (five preferred) for regular dinners.
func DefaultPolicies() map[DinnerType]GroupSizePolicy {
	return map[DinnerType]GroupSizePolicy{
		Singles: {Min: 2, Max: 2, Ideal: 2, Description: "Singles dinners seat exactly two people"},
		Regular: {Min: 4, Max: 6, Ideal: 5, Description: "Regular dinners seat four to six people, five preferred"},
	}
}

// NewPolicyTable validates the given policies and returns a table.
//
// Rules:
//   - every dinner-type in AllDinnerTypes has a policy
//   - 1 <= Min <= Ideal <= Max
//   - singles policies are exactly {2, 2, 2}
//
// Dinner-types are checked in AllDinnerTypes order and the first violation
// is returned as an *InvalidPolicyError.
func NewPolicyTable(policies map[DinnerType]GroupSizePolicy) (*PolicyTable, error) {
	table := &PolicyTable{policies: make(map[DinnerType]GroupSizePolicy, len(policies))}

	for _, dt := range AllDinnerTypes {
		p, ok := policies[dt]
		if !ok {
			return nil, &InvalidPolicyError{DinnerType: dt.String(), Reason: "no policy configured"}
		}
		if err := validatePolicy(dt, p); err != nil {
			return nil, err
		}
		table.policies[dt] = p
	}

	// Entries for dinner-types outside AllDinnerTypes, lowest first.
	var extra []DinnerType
	for dt := range policies {
		if _, ok := table.policies[dt]; !ok {
			extra = append(extra, dt)
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return nil, validatePolicy(extra[0], policies[extra[0]])
	}

	return table, nil
}

// DefaultPolicyTable returns a table built from DefaultPolicies.
func DefaultPolicyTable() *PolicyTable {
	table, err := NewPolicyTable(DefaultPolicies())
	if err != nil {
		panic(fmt.Sprintf("partition: default policies are invalid: %v", err))
	}
	return table
}

func validatePolicy(dt DinnerType, p GroupSizePolicy) error {
	invalid := func(format string, args ...any) error {
		return &InvalidPolicyError{DinnerType: dt.String(), Reason: fmt.Sprintf(format, args...)}
	}

	if dt != Singles && dt != Regular {
		return invalid("unknown dinner-type")
	}
	if p.Min < 1 {
		return invalid("min must be at least 1, got %d", p.Min)
	}
	if p.Ideal < p.Min {
		return invalid("ideal %d is below min %d", p.Ideal, p.Min)
	}
	if p.Max < p.Ideal {
		return invalid("max %d is below ideal %d", p.Max, p.Ideal)
	}
	if dt == Singles && (p.Min != 2 || p.Ideal != 2 || p.Max != 2) {
		return invalid("singles groups must be exactly 2, got min=%d ideal=%d max=%d", p.Min, p.Ideal, p.Max)
	}
	return nil
}

// Lookup returns the policy for a dinner-type.
func (t *PolicyTable) Lookup(dt DinnerType) (GroupSizePolicy, error) {
	p, ok := t.policies[dt]
	if !ok {
		return GroupSizePolicy{}, &UnknownDinnerTypeError{DinnerType: dt.String()}
	}
	return p, nil
}

// PolicyEntry pairs a dinner-type with its policy for listing.
type PolicyEntry struct {
	DinnerType DinnerType
	Policy     GroupSizePolicy
}

// Entries returns the table's policies ordered by dinner-type.
func (t *PolicyTable) Entries() []PolicyEntry {
	entries := make([]PolicyEntry, 0, len(t.policies))
	for dt, p := range t.policies {
		entries = append(entries, PolicyEntry{DinnerType: dt, Policy: p})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DinnerType < entries[j].DinnerType
	})
	return entries
}
