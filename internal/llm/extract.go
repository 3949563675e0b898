package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/cardwise/internal/common"
)

var (
	fencedBlock    = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	jsonPrefixed   = regexp.MustCompile(`(?s)JSON:\s*(\{.*\})`)
	trailingCommas = regexp.MustCompile(`,\s*([}\]])`)
	smartQuotes    = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// extractJSON recovers a JSON object from raw model output. It tries each
// balanced object in order, then fenced or "JSON:" prefixed blocks, then
// each line on its own.
func extractJSON(raw string) ([]byte, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", common.ErrLLMResponseFormat)
	}

	if fixed, ok := firstValidObject(text); ok {
		return fixed, nil
	}

	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if fixed, ok := firstValidObject(m[1]); ok {
			return fixed, nil
		}
	}
	if m := jsonPrefixed.FindStringSubmatch(text); m != nil {
		if fixed, ok := firstValidObject(m[1]); ok {
			return fixed, nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") || !strings.Contains(line, `"`) {
			continue
		}
		if fixed, ok := validObject(line); ok {
			return fixed, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", common.ErrLLMResponseFormat, truncate(text, 120))
}

// firstValidObject tries the balanced object at every '{' in s, in order,
// and returns the first one that decodes. Prose such as "{here it is}" ahead
// of the payload is skipped.
func firstValidObject(s string) ([]byte, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		if obj, ok := balancedObjectAt(s, start); ok {
			if fixed, ok := validObject(obj); ok {
				return fixed, true
			}
		}
	}
	return nil, false
}

// balancedObjectAt returns the substring from the '{' at start to its
// matching '}', honoring string literals.
func balancedObjectAt(s string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// validObject returns candidate, repaired if needed, when it decodes to a
// JSON object.
func validObject(candidate string) ([]byte, bool) {
	for _, c := range []string{candidate, repairJSON(candidate)} {
		var probe map[string]any
		if json.Unmarshal([]byte(c), &probe) == nil {
			return []byte(c), true
		}
	}
	return nil, false
}

// repairJSON fixes the slips small models make most often.
func repairJSON(s string) string {
	s = smartQuotes.Replace(s)
	return trailingCommas.ReplaceAllString(s, "$1")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
