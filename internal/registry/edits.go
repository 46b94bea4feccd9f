package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ad/go-scholar-wizard/internal/models"
)

// ApplyEdits overlays textual field values onto a payload and returns the
// resulting payload. The input payload is not modified. An empty value clears
// the field. File fields cannot be edited as text.
func (r *Registry) ApplyEdits(flow models.Flow, key models.StepKey, p models.StepPayload, edits map[string]string) (models.StepPayload, error) {
	step := r.Lookup(flow, key)
	if step.Placeholder {
		return nil, fmt.Errorf("%w: %s/%s", models.ErrUnknownStep, flow, key)
	}
	if p == nil {
		var err error
		if p, err = New(flow, key); err != nil {
			return nil, err
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	verr := &models.ValidationError{Step: key}
	for name, value := range edits {
		f, ok := step.Field(name)
		if !ok {
			verr.Violations = append(verr.Violations, models.FieldViolation{Field: name, Rule: "unknown"})
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			delete(fields, name)
			continue
		}
		v, rule := convertField(f.Kind, value)
		if rule != "" {
			verr.Violations = append(verr.Violations, models.FieldViolation{Field: name, Rule: rule})
			continue
		}
		fields[name] = v
	}
	if len(verr.Violations) > 0 {
		return nil, verr
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	out, err := Decode(flow, key, merged)
	if err != nil {
		return nil, &models.ValidationError{Step: key, Violations: []models.FieldViolation{{Field: "*", Rule: "type"}}}
	}
	return out, nil
}

func convertField(kind models.FieldKind, value string) (any, string) {
	switch kind {
	case models.FieldText:
		return value, ""
	case models.FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return nil, "number"
		}
		return json.Number(value), ""
	case models.FieldBool:
		switch strings.ToLower(value) {
		case "yes", "y", "true", "1", "on":
			return true, ""
		case "no", "n", "false", "0", "off":
			return false, ""
		}
		return nil, "bool"
	case models.FieldList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, ""
	case models.FieldFile:
		return nil, "file"
	}
	return nil, "kind"
}
