package pipeline

import (
	"encoding/json"
	"strings"
)

// ParseOutcome reports which recovery tier produced a usable structure
// from raw model output. Undetermined is a distinct outcome, never a
// silent default.
type ParseOutcome int

const (
	ParseUndetermined ParseOutcome = iota
	ParseDirect
	ParseEmbedded
	ParseHeuristic
)

func (o ParseOutcome) String() string {
	switch o {
	case ParseDirect:
		return "direct"
	case ParseEmbedded:
		return "embedded"
	case ParseHeuristic:
		return "heuristic"
	default:
		return "undetermined"
	}
}

// Usable reports whether the outcome carries a usable record.
func (o ParseOutcome) Usable() bool {
	return o != ParseUndetermined
}

// DecodeJSON attempts the first two recovery tiers against raw model
// output: (1) direct parse of the fence-stripped text, (2) parse of the
// largest embedded object block. Shape-specific tier-3 heuristics belong
// to the calling step. out must be a pointer.
func DecodeJSON(raw string, out any) ParseOutcome {
	text := stripFences(strings.TrimSpace(raw))
	if text == "" {
		return ParseUndetermined
	}

	if err := json.Unmarshal([]byte(text), out); err == nil {
		return ParseDirect
	}

	if block := largestJSONBlock(text); block != "" {
		if err := json.Unmarshal([]byte(block), out); err == nil {
			return ParseEmbedded
		}
	}

	return ParseUndetermined
}

// stripFences removes a surrounding markdown code fence, with or without
// a language tag.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := text
	if idx := strings.Index(body, "\n"); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = strings.TrimPrefix(body, "```")
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

// largestJSONBlock scans for the largest balanced {...} block in the
// text. Models routinely wrap their JSON in prose; the largest block is
// almost always the payload.
func largestJSONBlock(text string) string {
	best := ""
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := text[start : i+1]
				if len(candidate) > len(best) {
					best = candidate
				}
			}
		}
	}
	return best
}
