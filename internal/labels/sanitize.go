package labels

// Sanitize coerces raw model outputs into the closed label set. Each raw value
// loses one matching pair of single or double quotes, if present, and is kept
// when what remains is a member of valid; anything else becomes def. The
// result is index-aligned with raw and Sanitize is idempotent.
func Sanitize(raw []string, valid Set, def string) []string {
	out := make([]string, len(raw))
	for i, r := range raw {
		out[i] = sanitizeOne(r, valid, def)
	}
	return out
}

func sanitizeOne(r string, valid Set, def string) string {
	v := r
	if inner, ok := unquote(r); ok {
		v = inner
	}
	if valid.Contains(v) {
		return v
	}
	return def
}

func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return s, false
	}
	first, last := s[0], s[len(s)-1]
	if first != last || (first != '\'' && first != '"') {
		return s, false
	}
	return s[1 : len(s)-1], true
}
