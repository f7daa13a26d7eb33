package crewstore

import (
	"strings"
)

var verdictKeywords = map[string]Verdict{
	"SHIP":          VerdictShip,
	"NEEDS_WORK":    VerdictNeedsWork,
	"MAJOR_RETHINK": VerdictMajorRethink,
}

// ParseVerdict extracts a ReviewVerdict from a reviewer's markdown
// output (§4.9): the verdict keyword after a "Verdict:" heading, the
// summary paragraph up to the next heading, and bulleted Issues /
// Suggestions sections. Malformed input defaults to NEEDS_WORK with no
// issues, so the scheduler proceeds under a safe assumption rather
// than erroring out.
func ParseVerdict(markdown string) *ReviewVerdict {
	rv := &ReviewVerdict{Verdict: VerdictNeedsWork}

	lines := strings.Split(markdown, "\n")
	section := ""
	var summaryLines []string

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		label := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		lower := strings.ToLower(label)

		switch {
		case strings.HasPrefix(lower, "verdict:"):
			rest := strings.TrimSpace(label[len("verdict:"):])
			rv.Verdict = matchKeyword(rest)
			section = "summary"
			continue
		case isHeading(trimmed, "issues"):
			section = "issues"
			continue
		case isHeading(trimmed, "suggestions"):
			section = "suggestions"
			continue
		case strings.HasPrefix(trimmed, "#"):
			if section == "summary" {
				section = ""
			}
			continue
		}

		switch section {
		case "summary":
			if trimmed != "" {
				summaryLines = append(summaryLines, trimmed)
			}
		case "issues":
			if item, ok := bulletItem(trimmed); ok {
				rv.Issues = append(rv.Issues, item)
			}
		case "suggestions":
			if item, ok := bulletItem(trimmed); ok {
				rv.Suggestions = append(rv.Suggestions, item)
			}
		}
	}

	rv.Summary = strings.Join(summaryLines, " ")
	return rv
}

func matchKeyword(s string) Verdict {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for kw, v := range verdictKeywords {
		if strings.Contains(upper, kw) {
			return v
		}
	}
	return VerdictNeedsWork
}

func isHeading(line, word string) bool {
	if !strings.HasPrefix(line, "#") {
		return false
	}
	stripped := strings.TrimLeft(line, "# ")
	return strings.EqualFold(strings.TrimSpace(stripped), word)
}

func bulletItem(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}
