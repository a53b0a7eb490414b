package domain

import "fmt"

// CheckRecord reports every way v departs from a well-formed weather record.
// Unlike Record.Config, which reads leniently, it flags fields with
// unexpected shapes, out-of-range levels, and a stored sentinel tint.
func CheckRecord(v any) []string {
	rec, ok := AsRecord(v)
	if !ok {
		return []string{fmt.Sprintf("not a record: %T", v)}
	}

	var problems []string
	switch t, ok := rec[FieldType].(string); {
	case !ok:
		problems = append(problems, "type: missing or not a string")
	case !Condition(t).Valid():
		problems = append(problems, fmt.Sprintf("type: unknown condition %q", t))
	}

	for _, field := range []string{FieldSpeed, FieldDensity} {
		raw, present := rec[field]
		if !present {
			continue
		}
		n, ok := asInt(raw)
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%s: not an integer: %v", field, raw))
		case !ValidLevel(n):
			problems = append(problems, fmt.Sprintf("%s: level %d out of range", field, n))
		}
	}

	if raw, present := rec[FieldDirection]; present {
		m, ok := raw.(map[string]any)
		if !ok {
			problems = append(problems, "direction: not an {x, y} object")
		} else {
			_, okX := asFloat(m["x"])
			_, okY := asFloat(m["y"])
			if !okX || !okY {
				problems = append(problems, "direction: x and y must be numbers")
			}
		}
	}

	if raw, present := rec[FieldTint]; present {
		t, ok := raw.(string)
		switch {
		case !ok || !ValidHex(t):
			problems = append(problems, fmt.Sprintf("tint: not a #rrggbb color: %v", raw))
		case IsNoTint(t):
			problems = append(problems, "tint: sentinel stored instead of removing the field")
		}
	}

	return problems
}
