package scene

// Join is the result of matching a new keyed collection against the keys
// currently bound to a surface.
type Join[K comparable, T any] struct {
	Enter     []T // data whose key is not bound yet
	Update    []T // data whose key is already bound
	Exit      []K // bound keys absent from the new data, in bound order
	Duplicate []T // data repeating a key seen earlier in the same collection
}

// Diff computes the enter/update/exit join of next against current.
func Diff[K comparable, T any](current []K, next []T, key func(T) K) Join[K, T] {
	bound := make(map[K]bool, len(current))
	for _, k := range current {
		bound[k] = true
	}

	var j Join[K, T]
	seen := make(map[K]bool, len(next))
	for _, d := range next {
		k := key(d)
		if seen[k] {
			j.Duplicate = append(j.Duplicate, d)
			continue
		}
		seen[k] = true
		if bound[k] {
			j.Update = append(j.Update, d)
		} else {
			j.Enter = append(j.Enter, d)
		}
	}
	for _, k := range current {
		if !seen[k] {
			j.Exit = append(j.Exit, k)
		}
	}
	return j
}
