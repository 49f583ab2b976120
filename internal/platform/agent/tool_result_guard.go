package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultMaxToolResults bounds how many tool results survive into the
	// chat transcript.
	DefaultMaxToolResults = 4

	// DefaultMaxSnippetChars bounds each result snippet.
	DefaultMaxSnippetChars = 280

	defaultTitle             = "Recomendacion interna"
	maxRecommendationChars   = 600
	maxRecommendationEntries = 5
)

var spacesPattern = regexp.MustCompile(`\s+`)

// SanitizeToolResults returns bounded, consistently shaped tool results for
// persistence and display. At most max(1, maxItems) records are kept; text
// fields are compacted and truncated; the recommendation payload is reduced
// to a summary when its serialization exceeds budget. It never fails.
// Non-positive maxItems/maxSnippetChars select the defaults.
func SanitizeToolResults(results []map[string]any, maxItems, maxSnippetChars int) []map[string]any {
	if maxItems == 0 {
		maxItems = DefaultMaxToolResults
	}
	if maxItems < 1 {
		maxItems = 1
	}
	if maxSnippetChars <= 0 {
		maxSnippetChars = DefaultMaxSnippetChars
	}

	safe := make([]map[string]any, 0, maxItems)
	for _, item := range results {
		if len(safe) >= maxItems {
			break
		}
		endpoint := compactText(item["endpoint"], 160)
		title := compactText(item["title"], 120)
		if title == "" {
			title = defaultTitle
		}
		snippet := compactText(item["snippet"], maxSnippetChars)

		source := endpoint
		if source == "" {
			source = "internal"
		}

		safe = append(safe, map[string]any{
			"type":           "internal_recommendation",
			"endpoint":       endpoint,
			"title":          title,
			"source":         source,
			"snippet":        snippet,
			"recommendation": compactRecommendation(item["recommendation"]),
		})
	}
	return safe
}

// compactText renders a value as a single-spaced trimmed string truncated to
// maxChars characters.
func compactText(value any, maxChars int) string {
	var text string
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		text = v
	default:
		text = fmt.Sprintf("%v", v)
	}
	text = strings.TrimSpace(spacesPattern.ReplaceAllString(text, " "))
	if runes := []rune(text); len(runes) > maxChars {
		text = string(runes[:maxChars])
	}
	return text
}

// compactRecommendation bounds a recommendation payload: keys and scalar
// values are truncated, lists and nested maps keep their first entries. When
// the serialized form still exceeds budget the whole payload collapses to a
// single summary field; the record is a persistence artifact, not the answer.
func compactRecommendation(payload any) map[string]any {
	m, ok := payload.(map[string]any)
	if !ok {
		return map[string]any{}
	}

	compact := make(map[string]any, len(m))
	for key, value := range m {
		safeKey := compactText(key, 80)
		switch v := value.(type) {
		case []any:
			items := v
			if len(items) > maxRecommendationEntries {
				items = items[:maxRecommendationEntries]
			}
			list := make([]string, 0, len(items))
			for _, item := range items {
				list = append(list, compactText(item, 140))
			}
			compact[safeKey] = list
		case map[string]any:
			nested := make(map[string]string, maxRecommendationEntries)
			for k, nv := range v {
				if len(nested) >= maxRecommendationEntries {
					break
				}
				nested[compactText(k, 60)] = compactText(nv, 140)
			}
			compact[safeKey] = nested
		default:
			compact[safeKey] = compactText(value, 180)
		}
	}

	raw, err := json.Marshal(compact)
	if err != nil {
		return map[string]any{}
	}
	if runes := []rune(string(raw)); len(runes) > maxRecommendationChars {
		return map[string]any{"summary": string(runes[:maxRecommendationChars])}
	}
	return compact
}
