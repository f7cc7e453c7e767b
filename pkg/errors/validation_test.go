package errors

import (
	"strings"
	"testing"
)

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"prefixed", "P:alice", false},
		{"plain", "alice", false},
		{"unicode", "P:zoë", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("a", MaxNodeIDLength+1), true},
		{"newline", "P:al\nice", true},
		{"null byte", "P:\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeValidation) {
				t.Errorf("ValidateNodeID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeValidation)
			}
		})
	}
}

func TestValidateViewName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"demo", false},
		{"case 42 / suspects", false},
		{"", true},
		{" \t ", true},
		{strings.Repeat("v", MaxViewNameLength+1), true},
		{"bad\x07name", true},
	}

	for _, tt := range tests {
		err := ValidateViewName(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateViewName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateViewID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"42", false},
		{"3f1c2a9e-7a4b-4f1e-9d43-2a1b0c9d8e7f", false},
		{"", true},
		{"../etc", true},
		{"a/b", true},
		{"a b", true},
	}

	for _, tt := range tests {
		err := ValidateViewID(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateViewID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		input   int
		wantErr bool
	}{
		{0, false},
		{25, false},
		{MaxNeighborLimit, false},
		{-1, true},
		{MaxNeighborLimit + 1, true},
	}

	for _, tt := range tests {
		err := ValidateLimit(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateLimit(%d) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"http://localhost:8080", false},
		{"https://graph.example.com/api", false},
		{"", true},
		{"ftp://example.com", true},
		{"localhost:8080", true},
	}

	for _, tt := range tests {
		err := ValidateURL(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
