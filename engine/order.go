/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package engine

import (
	"sort"

	"github.com/rulego/aop/api/types"
)

// OrderOf returns the order of an advisor: its own order, the order of its advice, or LowestPrecedence.
func OrderOf(advisor types.Advisor) int {
	if o, ok := advisor.(types.Ordered); ok {
		return o.Order()
	}
	if o, ok := advisor.Advice().(types.Ordered); ok {
		return o.Order()
	}
	return types.LowestPrecedence
}

// IsPriorityOrdered reports whether the advisor is marked PriorityOrdered.
func IsPriorityOrdered(advisor types.Advisor) bool {
	p, ok := advisor.(types.PriorityOrdered)
	return ok && p.PriorityOrdered()
}

type orderKey struct {
	order    int
	priority bool
	// group is the index of the first advisor of the same aspect, or the own index
	group       int
	declaration int
	index       int
}

// SortAdvisors returns a sorted copy of advisors. The lower order sorts first and is the outermost
// interceptor. Ties are broken by the PriorityOrdered flag, then advisors of the same aspect stay
// together in declaration order, then the original position decides.
// SortAdvisors 返回排序后的 Advisor 副本，order 越小越靠外层
func SortAdvisors(advisors []types.Advisor) []types.Advisor {
	keys := make([]orderKey, len(advisors))
	firstOfAspect := make(map[string]int)
	for i, advisor := range advisors {
		key := orderKey{order: OrderOf(advisor), priority: IsPriorityOrdered(advisor), group: i, index: i}
		if meta, ok := advisor.(types.AspectMetadata); ok && meta.AspectName() != "" {
			if first, seen := firstOfAspect[meta.AspectName()]; seen {
				key.group = first
			} else {
				firstOfAspect[meta.AspectName()] = i
			}
			key.declaration = meta.DeclarationOrder()
		}
		keys[i] = key
	}
	indexes := make([]int, len(advisors))
	for i := range indexes {
		indexes[i] = i
	}
	sort.SliceStable(indexes, func(i, j int) bool {
		a, b := keys[indexes[i]], keys[indexes[j]]
		if a.order != b.order {
			return a.order < b.order
		}
		if a.priority != b.priority {
			return a.priority
		}
		if a.group != b.group {
			return a.group < b.group
		}
		if a.declaration != b.declaration {
			return a.declaration < b.declaration
		}
		return a.index < b.index
	})
	sorted := make([]types.Advisor, len(advisors))
	for i, idx := range indexes {
		sorted[i] = advisors[idx]
	}
	return sorted
}
