package memory

import "strings"

// DefaultAliases maps synonymous metric names to their standard identifiers.
// The table was built empirically from user requests and is not complete;
// deployments extend it through configuration (WithAliases).
func DefaultAliases() map[string]string {
	return map[string]string{
		"最大宽度":   "max_width",
		"平均宽度":   "avg_width",
		"最大裂缝宽度": "max_width",
		"宽度最大值":  "max_width",
		"avgwidth": "avg_width",
		"最大宽":    "max_width",
		"长度":     "length",
		"面积":     "area",
	}
}

var normalizer = strings.NewReplacer(" ", "", "_", "", "(", "", ")", "")

// Normalize case-folds a metric name and strips spaces, underscores and parentheses,
// so "Max Width (mm)" and "max_width" compare as "maxwidthmm" and "maxwidth".
func Normalize(s string) string {
	return normalizer.Replace(strings.ToLower(s))
}

// AliasTable resolves metric synonyms to standard names.
type AliasTable struct {
	entries map[string]string // normalized alias -> standard name
}

// NewAliasTable builds a table from alias -> standard pairs.
func NewAliasTable(aliases map[string]string) *AliasTable {
	t := &AliasTable{entries: make(map[string]string, len(aliases))}
	for alias, standard := range aliases {
		t.entries[Normalize(alias)] = standard
	}
	return t
}

// Standard returns the standard name for a requested metric, normalized.
// Unknown names are returned normalized as-is.
func (t *AliasTable) Standard(name string) string {
	n := Normalize(name)
	if std, ok := t.entries[n]; ok {
		return Normalize(std)
	}
	return n
}

// Matches reports whether a requested metric name matches a stored observation key.
//
// This is an approximate match by substring containment after normalization: "width"
// matches both "Max Width (mm)" and "Avg Width (mm)". It is kept loose on purpose to
// tolerate naming differences between requests and stored keys.
func (t *AliasTable) Matches(requested, key string) bool {
	return strings.Contains(Normalize(key), t.Standard(requested))
}
