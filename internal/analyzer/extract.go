package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const rawPrefixLen = 200

// ExtractionError means no recovery strategy produced parseable JSON. It
// carries a bounded prefix of the raw reply for diagnosis.
type ExtractionError struct {
	RawPrefix string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("could not extract valid JSON from response: %s", e.RawPrefix)
}

// SchemaError means the reply parsed as JSON but does not match the required
// analysis shape. Raised at the boundary instead of letting a half-empty
// object propagate downstream.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("analysis response violates schema: %s", e.Reason)
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	hintedSpanRe  = regexp.MustCompile(`(?s)\{.*"topics".*"summary".*\}`)
)

// The recovery cascade: each strategy proposes a candidate JSON span, in
// priority order. First candidate that parses wins.
var strategies = []func(string) (string, bool){
	wholeText,
	fencedBlock,
	hintedSpan,
	bracketSpan,
}

func wholeText(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	return trimmed, trimmed != ""
}

func fencedBlock(raw string) (string, bool) {
	m := fencedBlockRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func hintedSpan(raw string) (string, bool) {
	m := hintedSpanRe.FindString(raw)
	return m, m != ""
}

func bracketSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// ExtractAnalysis recovers a validated analysis object from the raw text an
// LLM backend returned. Models do not reliably honour "JSON only", so the
// reply may be pure JSON, fenced JSON, or JSON buried in prose.
func ExtractAnalysis(raw string) (*ConversationAnalysis, error) {
	for _, strategy := range strategies {
		candidate, ok := strategy(raw)
		if !ok {
			continue
		}

		var probe any
		if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
			continue
		}

		// Parseable JSON found: this strategy wins, validate it.
		if err := validateShape(probe); err != nil {
			return nil, err
		}

		var analysis ConversationAnalysis
		if err := json.Unmarshal([]byte(candidate), &analysis); err != nil {
			return nil, &SchemaError{Reason: err.Error()}
		}
		return &analysis, nil
	}

	return nil, &ExtractionError{RawPrefix: clampRunes(raw, rawPrefixLen)}
}

// validateShape checks the required top-level containers before the typed
// decode, so a malformed-but-parseable reply fails here with a useful reason.
func validateShape(v any) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return &SchemaError{Reason: "top level is not an object"}
	}

	for _, key := range []string{"topics", "codeSnippets"} {
		raw, present := obj[key]
		if !present {
			return &SchemaError{Reason: fmt.Sprintf("missing %q", key)}
		}
		if _, isArray := raw.([]any); !isArray {
			return &SchemaError{Reason: fmt.Sprintf("%q is not an array", key)}
		}
	}

	rawSummary, present := obj["summary"]
	if !present {
		return &SchemaError{Reason: `missing "summary"`}
	}
	summary, isObj := rawSummary.(map[string]any)
	if !isObj {
		return &SchemaError{Reason: `"summary" is not an object`}
	}
	if _, isString := summary["tldr"].(string); !isString {
		return &SchemaError{Reason: `"summary.tldr" is not a string`}
	}
	if _, isArray := summary["outline"].([]any); !isArray {
		return &SchemaError{Reason: `"summary.outline" is not an array`}
	}

	return nil
}

func clampRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
