package service

import (
	"strings"
	"testing"

	"github.com/sifan077/SnipURL/internal/app/apperr"
)

func TestAliasGenerator_Random(t *testing.T) {
	g := NewAliasGenerator(7)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := g.Random()
		if err != nil {
			t.Fatalf("Random returned error: %v", err)
		}
		if len(code) != 7 {
			t.Fatalf("expected 7-character code, got %q", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 99 {
		t.Fatalf("expected nearly all codes to differ, got %d distinct of 100", len(seen))
	}
}

func TestAliasGenerator_DefaultLength(t *testing.T) {
	g := NewAliasGenerator(0)
	code, err := g.Random()
	if err != nil {
		t.Fatalf("Random returned error: %v", err)
	}
	if len(code) != defaultCodeLen {
		t.Fatalf("expected default length %d, got %d", defaultCodeLen, len(code))
	}
}

func TestAliasGenerator_ValidateCustom(t *testing.T) {
	g := NewAliasGenerator(7)

	tests := []struct {
		name    string
		alias   string
		wantErr bool
	}{
		{name: "valid", alias: "my-link_1"},
		{name: "minimum length", alias: "abc"},
		{name: "too short", alias: "ab", wantErr: true},
		{name: "too long", alias: strings.Repeat("a", 33), wantErr: true},
		{name: "invalid characters", alias: "my link!", wantErr: true},
		{name: "reserved word", alias: "analytics", wantErr: true},
		{name: "reserved route prefix", alias: "shorten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.ValidateCustom(tt.alias)
			if tt.wantErr {
				if !apperr.IsKind(err, apperr.KindValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateCustom returned error: %v", err)
			}
		})
	}
}

func TestCodeFilter(t *testing.T) {
	f := NewCodeFilter(1000, 0.001)
	f.Seed([]string{"aaa1111", "bbb2222"})
	f.Add("ccc3333")

	for _, code := range []string{"aaa1111", "bbb2222", "ccc3333"} {
		if !f.MayExist(code) {
			t.Fatalf("expected %q to be present in the filter", code)
		}
	}
}
