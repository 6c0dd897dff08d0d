package fetcher

// MergeEnvelope merges a page envelope into the accumulated envelope and
// returns the accumulator. Per field:
//   - arrays concatenate (accumulated first, then the page's elements)
//   - objects merge recursively
//   - scalars, and any field whose type changed between pages, take the page's value
//
// The page is never modified. A nil accumulator is allocated.
func MergeEnvelope(acc, page map[string]any) map[string]any {
	if acc == nil {
		acc = make(map[string]any, len(page))
	}
	for k, pv := range page {
		acc[k] = mergeValue(acc[k], pv)
	}
	return acc
}

func mergeValue(prev, next any) any {
	switch n := next.(type) {
	case []any:
		p, ok := prev.([]any)
		if !ok {
			return append([]any(nil), n...)
		}
		return append(p, n...)
	case map[string]any:
		p, ok := prev.(map[string]any)
		if !ok {
			p = make(map[string]any, len(n))
		}
		return MergeEnvelope(p, n)
	default:
		return next
	}
}
