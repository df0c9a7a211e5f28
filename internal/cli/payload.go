package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/hiscores/internal/model"
)

// parseRow decodes a JSON object flag. Integers that fit int64 become int64;
// other numbers stay json.Number so large counters are never rounded.
func parseRow(flag, s string) (model.Row, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var raw map[string]any
	if err := decodeJSON(s, &raw); err != nil {
		return nil, fmt.Errorf("invalid --%s JSON: %w", flag, err)
	}
	return model.Row(normalize(raw).(map[string]any)), nil
}

// parseRows decodes a JSON array of objects.
func parseRows(flag, s string) ([]model.Row, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var raw []map[string]any
	if err := decodeJSON(s, &raw); err != nil {
		return nil, fmt.Errorf("invalid --%s JSON: %w", flag, err)
	}
	rows := make([]model.Row, len(raw))
	for i, r := range raw {
		rows[i] = model.Row(normalize(r).(map[string]any))
	}
	return rows, nil
}

func decodeJSON(s string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	return dec.Decode(v)
}

func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	}
	return v
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
