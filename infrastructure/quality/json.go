package quality

import "strings"

// extractJSON returns the first JSON object in response. Models often wrap
// their answer in a fenced code block or surround it with prose, so fenced
// blocks are searched first and then the first balanced {...} span is taken.
// It returns "" when no object is found.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if body, ok := fencedBlock(response); ok && strings.HasPrefix(body, "{") {
		response = body
	}

	start := strings.IndexByte(response, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

// fencedBlock returns the trimmed body of the first ``` block, skipping an
// optional language tag on the opening line.
func fencedBlock(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	rest := s[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.Contains(rest[:nl], "{") {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
