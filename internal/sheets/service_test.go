package sheets

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestSpreadsheetID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0", "1AbC-d_9", false},
		{"https://docs.google.com/spreadsheets/d/xyz", "xyz", false},
		{"https://example.com/sheet", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := SpreadsheetID(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("SpreadsheetID(%q) err = %v", tt.url, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidURL) {
			t.Errorf("SpreadsheetID(%q) err = %v, want ErrInvalidURL", tt.url, err)
		}
		if got != tt.want {
			t.Errorf("SpreadsheetID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&googleapi.Error{Code: 429}, true},
		{&googleapi.Error{Code: 503}, true},
		{fmt.Errorf("append: %w", &googleapi.Error{Code: 500}), true},
		{&googleapi.Error{Code: 403}, false},
		{&googleapi.Error{Code: 404}, false},
		{context.DeadlineExceeded, false},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := isTransient(tt.err); got != tt.want {
			t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNewServiceValidatesInput(t *testing.T) {
	ctx := t.Context()
	if _, err := NewService(ctx, "not a url", Credentials{JSON: "{}"}); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("bad url err = %v", err)
	}
	url := "https://docs.google.com/spreadsheets/d/abc/edit"
	if _, err := NewService(ctx, url, Credentials{}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("no credentials err = %v", err)
	}
	if _, err := NewService(ctx, url, Credentials{JSON: "not json"}); err == nil {
		t.Error("expected credentials parse error")
	}
}
