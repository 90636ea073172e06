package crossref

import (
	"regexp"
	"strconv"
)

// complaintRefPattern matches complaint references such as "#101". The digit
// run is greedy, so "#70" is never read as a reference to complaint 7.
var complaintRefPattern = regexp.MustCompile(`#(\d+)`)

// ExtractComplaintRefs extracts all complaint ids referenced in text.
// Returns a deduplicated list preserving the order of first occurrence.
func ExtractComplaintRefs(text string) []string {
	matches := complaintRefPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		id := m[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

// References reports whether text contains a "#<id>" reference to id.
// Ids that are not decimal integers never match.
func References(text string, id string) bool {
	if !IsEntityID(id) {
		return false
	}
	for _, ref := range ExtractComplaintRefs(text) {
		if ref == id {
			return true
		}
	}
	return false
}

// IsEntityID reports whether id is a non-empty decimal integer.
func IsEntityID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatRef renders a complaint reference the way notification text does.
func FormatRef(id int64) string {
	return "#" + strconv.FormatInt(id, 10)
}
