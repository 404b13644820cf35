// Package reporting implements the query compiler and aggregation engine for
// the segment reporting API: segment breakdowns, per-segment insights, trend
// windows, user timelines, search, and filtered export.
package reporting

// Category is one of the fixed logical segment classifications. Each maps
// from exactly one canonical raw label.
type Category struct {
	Key   string
	Label string
}

// categories is the fixed, ordered category enumeration. Defined at process
// start, never mutated.
var categories = []Category{
	{Key: "new_users", Label: "New Users"},
	{Key: "inactive", Label: "Inactive"},
	{Key: "core_gamers", Label: "Core Gamer"},
	{Key: "starters", Label: "Starters"},
	{Key: "regulars", Label: "Regular"},
	{Key: "casuals", Label: "Casual"},
	{Key: "previously_active_last_3m", Label: "Previously Active (last 3 months)"},
	{Key: "previously_active_before_3m", Label: "Previously Active (before 3 months)"},
}

// labelToKey is derived from categories at init.
var labelToKey = func() map[string]string {
	m := make(map[string]string, len(categories))
	for _, c := range categories {
		m[c.Label] = c.Key
	}
	return m
}()

// CategoryKeys returns the category keys in declaration order.
func CategoryKeys() []string {
	keys := make([]string, len(categories))
	for i, c := range categories {
		keys[i] = c.Key
	}
	return keys
}

// ToCategoryKey maps a raw segment label to its category key. Unrecognized
// labels pass through unchanged: they stay visible in listings but contribute
// to no category total, so unknown segment values never break aggregation.
func ToCategoryKey(rawLabel string) string {
	if key, ok := labelToKey[rawLabel]; ok {
		return key
	}
	return rawLabel
}
