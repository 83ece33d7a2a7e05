package summary

import (
	"regexp"
	"strings"
)

var (
	listItemRe = regexp.MustCompile(`^\s*(?:[-•*]|\d+[.)])\s*(.+)`)
	headingRe  = regexp.MustCompile(`^\s*[#*]+`)
)

// actionHeadings mark where the action-item section of a generated summary
// begins. Matching is case-insensitive substring, tolerant of the model's
// formatting.
var actionHeadings = []string{"action item", "to-do", "todo", "follow-up", "follow up"}

// ExtractActionItems pulls the list items that appear under an action-item
// heading. The section ends at the next heading.
func ExtractActionItems(text string) []string {
	var items []string
	inSection := false

	for _, line := range strings.Split(text, "\n") {
		if isActionHeading(line) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if m := listItemRe.FindStringSubmatch(line); m != nil {
			item := strings.TrimSpace(m[1])
			if item != "" {
				items = append(items, item)
			}
		} else if headingRe.MatchString(line) {
			inSection = false
		}
	}
	return items
}

func isActionHeading(line string) bool {
	lower := strings.ToLower(line)
	for _, h := range actionHeadings {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}
