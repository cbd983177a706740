package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:env:API_KEY", "env", "API_KEY", true},
		{"secretref:file:/run/secrets/jwt", "file", "/run/secrets/jwt", true},
		{"secretref:file:", "", "", false},
		{"secretref::x", "", "", false},
		{"secretref:env", "", "", false},
		{"plain", "", "", false},
	}
	for _, tt := range tests {
		p, r, ok := ParseSecretRef(tt.in)
		if p != tt.provider || r != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = %q, %q, %v", tt.in, p, r, ok)
		}
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jwt"), []byte("file-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "blank"), []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LANDMARKS_TEST_KEY", "env-secret")
	t.Setenv("LANDMARKS_TEST_REF", "secretref:env:LANDMARKS_TEST_KEY")

	r := DefaultResolver(dir)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain", "hello", "hello", nil},
		{"env expansion", "key=${LANDMARKS_TEST_KEY}", "key=env-secret", nil},
		{"env provider", "secretref:env:LANDMARKS_TEST_KEY", "env-secret", nil},
		{"expanded ref", "${LANDMARKS_TEST_REF}", "env-secret", nil},
		{"file provider", "secretref:file:jwt", "file-secret", nil},
		{"missing file", "secretref:file:nope", "", ErrNotFound},
		{"missing env", "secretref:env:LANDMARKS_TEST_UNSET", "", ErrNotFound},
		{"unknown provider", "secretref:vault:x", "", ErrUnknownProvider},
		{"empty strict", "secretref:file:blank", "", ErrEmpty},
		{"unset expansion", "${LANDMARKS_TEST_UNSET}", "", ErrMissingEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveValue(ctx, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_ResolveAll(t *testing.T) {
	t.Setenv("LANDMARKS_TEST_A", "a")
	r := NewResolver(false, NewEnvProvider())

	one, two, empty := "secretref:env:LANDMARKS_TEST_A", "literal", ""
	if err := r.ResolveAll(context.Background(), &one, &two, &empty, nil); err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if one != "a" || two != "literal" || empty != "" {
		t.Errorf("got %q %q %q", one, two, empty)
	}

	bad := "secretref:env:LANDMARKS_TEST_UNSET"
	if err := r.ResolveAll(context.Background(), &bad); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
