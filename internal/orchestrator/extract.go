package orchestrator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/leeaandrob/fusecast/internal/models"
)

// reasoningCap bounds reasoning text stored on a response.
const reasoningCap = 200

// parseModelOutput turns a raw completion into (probability, confidence,
// reasoning). Models wrap their JSON in prose and code fences, so the
// extractor is deliberately tolerant: it strips fences, takes the first
// balanced-brace object, and coerces string-typed numbers. Only a missing
// or out-of-range probability is a hard failure.
func parseModelOutput(raw string) (float64, models.Confidence, string, error) {
	cleaned := stripMarkdownCodeBlocks(raw)
	obj := extractJSON(cleaned)
	if obj == "" {
		return 0, "", "", fmt.Errorf("no JSON object in model output")
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return 0, "", "", fmt.Errorf("malformed JSON in model output: %w", err)
	}

	prob, ok := extractNumber(fields, "probability")
	if !ok {
		return 0, "", "", fmt.Errorf("missing probability in model output")
	}
	if math.IsNaN(prob) || math.IsInf(prob, 0) || prob < 0 || prob > 100 {
		return 0, "", "", fmt.Errorf("probability out of range: %v", prob)
	}

	confidence := parseConfidence(extractString(fields, "confidence"))
	reasoning := sanitizeReasoning(extractString(fields, "reasoning"))

	return prob, confidence, reasoning, nil
}

// stripMarkdownCodeBlocks removes ```json ... ``` wrappers.
func stripMarkdownCodeBlocks(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// extractJSON finds the first complete JSON object in a string.
func extractJSON(s string) string {
	start := -1
	braceCount := 0

	for i, c := range s {
		if c == '{' {
			if start == -1 {
				start = i
			}
			braceCount++
		} else if c == '}' {
			braceCount--
			if braceCount == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func extractNumber(m map[string]interface{}, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		cleaned := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func extractString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// parseConfidence maps the label case-insensitively; anything unknown
// lands on medium.
func parseConfidence(raw string) models.Confidence {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return models.ConfidenceLow
	case "high":
		return models.ConfidenceHigh
	default:
		return models.ConfidenceMedium
	}
}

// sanitizeReasoning strips leftover fences and JSON artifacts, collapses
// whitespace, and truncates to the cap without cutting mid-sentence when a
// boundary is close enough.
func sanitizeReasoning(s string) string {
	s = strings.ReplaceAll(s, "```", "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, `"{} `)

	if len(s) <= reasoningCap {
		return s
	}
	cut := s[:reasoningCap]
	if idx := strings.LastIndexAny(cut, ".!?"); idx > reasoningCap/2 {
		return cut[:idx+1]
	}
	if idx := strings.LastIndex(cut, " "); idx > reasoningCap/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
