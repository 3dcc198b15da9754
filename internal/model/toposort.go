package model

import (
	"fmt"
	"slices"
	"strings"

	"source-weaver/internal/compose"
)

// sortBySupertypes orders types so that every supertype in the set precedes
// its subtypes. Supertypes outside the set are ignored. Among types that
// become ready together, the one earlier in types goes first.
func sortBySupertypes(types []*compose.LogicalType) ([]*compose.LogicalType, error) {
	pos := make(map[compose.TypeID]int, len(types))
	for i, t := range types {
		pos[t.ID] = i
	}

	pending := make([]int, len(types))
	subtypes := make([][]int, len(types))

	for i, t := range types {
		for _, st := range t.Supertypes() {
			j, ok := pos[st.ID]
			if !ok {
				continue
			}

			pending[i]++
			subtypes[j] = append(subtypes[j], i)
		}
	}

	var ready []int

	for i, n := range pending {
		if n == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]*compose.LogicalType, 0, len(types))

	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]

		out = append(out, types[i])

		for _, j := range subtypes[i] {
			if pending[j]--; pending[j] == 0 {
				k, _ := slices.BinarySearch(ready, j)
				ready = slices.Insert(ready, k, j)
			}
		}
	}

	if len(out) < len(types) {
		var stuck []string

		for i, n := range pending {
			if n > 0 {
				stuck = append(stuck, types[i].Name)
			}
		}

		return out, fmt.Errorf("supertype cycle among %s", strings.Join(stuck, ", "))
	}

	return out, nil
}
