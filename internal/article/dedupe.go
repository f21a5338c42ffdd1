package article

// Dedupe returns fragments with later repeats of the same (kind, content)
// pair removed. First-occurrence order is preserved and the input is not
// modified.
func Dedupe(in []Fragment) []Fragment {
	seen := make(map[string]struct{}, len(in))
	out := make([]Fragment, 0, len(in))
	for _, f := range in {
		k := f.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Compact drops fragments whose content is empty or whitespace-only.
func Compact(in []Fragment) []Fragment {
	out := make([]Fragment, 0, len(in))
	for _, f := range in {
		if f.Empty() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Finalize applies the post-walk cleanup: empty fragments are dropped and
// duplicates suppressed.
func Finalize(in []Fragment) []Fragment {
	return Dedupe(Compact(in))
}
