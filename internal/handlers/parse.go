package handlers

import (
	"errors"
	"strings"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/wizard"
)

var errNoEdits = errors.New("no field edits")

// splitCommand splits "/cmd@bot a b" into "/cmd" and its arguments.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, fields[1:]
}

// parseFieldEdits reads "field: value" lines. A line without a colon
// continues the previous value.
func parseFieldEdits(text string) (map[string]string, error) {
	edits := make(map[string]string)
	last := ""
	for _, line := range strings.Split(text, "\n") {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			if last == "" {
				if strings.TrimSpace(line) == "" {
					continue
				}
				return nil, errNoEdits
			}
			edits[last] += "\n" + line
			continue
		}
		last = name
		edits[name] = strings.TrimSpace(value)
	}
	if len(edits) == 0 {
		return nil, errNoEdits
	}
	for k, v := range edits {
		edits[k] = strings.TrimSpace(v)
	}
	return edits, nil
}

// fileField picks the file field an upload is meant for: the caption when it
// names one, otherwise the step's first file field.
func fileField(st wizard.State, caption string) string {
	if f, ok := st.Step.Field(caption); ok && f.Kind == models.FieldFile {
		return f.Name
	}
	for _, f := range st.Step.Fields {
		if f.Kind == models.FieldFile {
			return f.Name
		}
	}
	return ""
}
