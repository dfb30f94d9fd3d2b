package partition

// Result is the output of Partition.
type Result[T any] struct {
	// Groups are the formed groups, each in input order.
	Groups [][]T

	// Remainder holds the trailing items that were too few to form a group.
	// Its length is always below the policy minimum.
	Remainder []T
}

// Placed returns the number of items assigned to a group.
func (r Result[T]) Placed() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g)
	}
	return n
}

// Partition splits items into groups sized by the policy for dt.
//
// Algorithm (greedy, order-preserving):
//   - while at least Min items remain:
//   - singles: take Min items
//   - regular: take Ideal items if at least Max remain, otherwise take the rest
//   - whatever is left (< Min) is the remainder
//
// The input slice is never modified and the result never aliases it.
// The same input always produces the same output.
func Partition[T any](items []T, dt DinnerType, policies *PolicyTable) (Result[T], error) {
	policy, err := policies.Lookup(dt)
	if err != nil {
		return Result[T]{}, err
	}

	var result Result[T]
	next := 0
	for len(items)-next >= policy.Min {
		remaining := len(items) - next

		take := policy.Min
		if dt != Singles {
			if remaining >= policy.Max {
				take = policy.Ideal
			} else {
				take = min(remaining, policy.Max)
			}
		}

		group := make([]T, take)
		copy(group, items[next:next+take])
		result.Groups = append(result.Groups, group)
		next += take
	}

	result.Remainder = make([]T, len(items)-next)
	copy(result.Remainder, items[next:])

	return result, nil
}

// PartitionNamed parses a raw dinner-type name and partitions items with it.
// An unparseable name fails with *UnknownDinnerTypeError before any work.
func PartitionNamed[T any](items []T, dinnerType string, policies *PolicyTable) (Result[T], error) {
	dt, err := ParseDinnerType(dinnerType)
	if err != nil {
		return Result[T]{}, err
	}
	return Partition(items, dt, policies)
}
