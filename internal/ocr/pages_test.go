package ocr

import (
	"slices"
	"testing"
)

func TestClampPages(t *testing.T) {
	tests := []struct {
		raw    string
		max    int
		want   []int32
		wantOK bool
	}{
		{"1-4", 10, []int32{1, 2, 3, 4}, true},
		{"1-4", 2, []int32{1, 2}, true},
		{"all", 3, []int32{1, 2, 3}, true},
		{"ALL", 1, []int32{1}, true},
		{"3 - 1", 5, []int32{3}, true},
		{"0-2", 5, []int32{1, 2}, true},
		{"5,1,1,9", 6, []int32{1, 5, 6}, true},
		{"", 5, nil, false},
		{"abc", 5, nil, false},
		{"1-2", 0, nil, false},
	}
	for _, tt := range tests {
		got, ok := ClampPages(tt.raw, tt.max)
		if ok != tt.wantOK || !slices.Equal(got, tt.want) {
			t.Errorf("ClampPages(%q, %d) = %v, %v; want %v, %v", tt.raw, tt.max, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFormatPages(t *testing.T) {
	tests := []struct {
		pages []int32
		want  string
	}{
		{nil, ""},
		{[]int32{2}, "2"},
		{[]int32{1, 2, 3, 4}, "1-4"},
		{[]int32{1, 3}, "1,3"},
	}
	for _, tt := range tests {
		if got := FormatPages(tt.pages); got != tt.want {
			t.Errorf("FormatPages(%v) = %q, want %q", tt.pages, got, tt.want)
		}
	}
}
