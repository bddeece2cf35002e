package allocation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var defaultName = regexp.MustCompile(`(?i)roommate\s*(\d+)`)

// ShortLabels returns compact chart labels: "Roommate 3" becomes "R.3",
// any other name its upper-cased initial. Colliding labels are numbered
// in order ("F.1", "F.2").
func ShortLabels(names []string) []string {
	labels := make([]string, len(names))
	counts := make(map[string]int, len(names))
	for i, name := range names {
		labels[i] = initial(name)
		counts[labels[i]]++
	}

	seen := make(map[string]int, len(counts))
	for i, l := range labels {
		if counts[l] == 1 {
			continue
		}
		seen[l]++
		labels[i] = fmt.Sprintf("%s.%d", l, seen[l])
	}
	return labels
}

func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	if m := defaultName.FindStringSubmatch(name); m != nil {
		return "R." + m[1]
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}
