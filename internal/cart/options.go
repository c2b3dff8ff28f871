package cart

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CanonicalOptions renders a selected-options map in a stable textual form so
// that value-equal selections always compare equal regardless of map key
// order. Object keys are sorted recursively; array elements keep their order,
// so two selections whose arrays differ only in ordering are distinct. A key
// mapped to null and an absent key are also distinct.
func CanonicalOptions(opts map[string]any) string {
	if len(opts) == 0 {
		return "{}"
	}
	var b strings.Builder
	writeCanonical(&b, opts)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, _ := json.Marshal(k)
			b.Write(enc)
			b.WriteByte(':')
			writeCanonical(b, val[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, elem)
		}
		b.WriteByte(']')
	default:
		enc, err := json.Marshal(v)
		if err != nil {
			fmt.Fprintf(b, "%q", fmt.Sprint(v))
			return
		}
		b.Write(enc)
	}
}
