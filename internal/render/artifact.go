// Package render produces the visual artifacts: line and scatter charts,
// box plots and hexagonal maps. Charts are SVG documents; maps can also
// be rendered as interactive HTML.
package render

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// ArtifactName builds a self-describing file name from the task, the
// column and the parameters that shaped the output, plus a short unique
// suffix so repeated commands never overwrite earlier artifacts.
func ArtifactName(task, column string, params map[string]string, ext string) string {
	parts := []string{sanitize(task), sanitize(column)}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if params[k] == "" {
			continue
		}
		parts = append(parts, sanitize(k)+"-"+sanitize(params[k]))
	}

	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s_%s.%s", strings.Join(parts, "_"), suffix, strings.TrimPrefix(ext, "."))
}

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = unsafeChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
