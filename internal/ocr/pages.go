package ocr

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// DefaultPages is the page range analyzed by the cloud stage when none is given.
const DefaultPages = "1-4"

var pageSpan = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)

// ClampPages parses "all", "a-b" or "a,b,c" and clamps every page into
// [1, maxPages]. A reversed span collapses to its start. ok is false when
// raw is empty or unparseable.
func ClampPages(raw string, maxPages int) ([]int32, bool) {
	p := strings.TrimSpace(raw)
	if p == "" || maxPages < 1 {
		return nil, false
	}
	clamp := func(n int) int { return max(1, min(n, maxPages)) }

	if strings.EqualFold(p, "all") {
		return pageRange(1, maxPages), true
	}

	if m := pageSpan.FindStringSubmatch(p); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		a, b = clamp(a), clamp(b)
		if b < a {
			b = a
		}
		return pageRange(a, b), true
	}

	var pages []int32
	for _, part := range strings.Split(p, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		pages = append(pages, int32(clamp(n)))
	}
	if len(pages) == 0 {
		return nil, false
	}
	slices.Sort(pages)
	return slices.Compact(pages), true
}

// FormatPages renders pages compactly ("1-4" or "1,3").
func FormatPages(pages []int32) string {
	if len(pages) == 0 {
		return ""
	}
	contiguous := true
	for i := 1; i < len(pages); i++ {
		if pages[i] != pages[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous && len(pages) > 1 {
		return fmt.Sprintf("%d-%d", pages[0], pages[len(pages)-1])
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(int(p))
	}
	return strings.Join(parts, ",")
}

func pageRange(a, b int) []int32 {
	pages := make([]int32, 0, b-a+1)
	for i := a; i <= b; i++ {
		pages = append(pages, int32(i))
	}
	return pages
}
