package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestParseVideoIDs(t *testing.T) {
	id := uuid.New()
	got, err := parseVideoIDs([]string{" " + id.String() + " "})
	if err != nil {
		t.Fatalf("parseVideoIDs: %v", err)
	}
	if len(got) != 1 || got[0] != id {
		t.Fatalf("unexpected ids: %v", got)
	}
	if _, err := parseVideoIDs([]string{"nope"}); err == nil {
		t.Fatalf("expected error for invalid id")
	}
}

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable(
		[]string{"State", "Videos"},
		[][]string{{"pending", "3"}, {"completed"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	lower := strings.ToLower(out)
	for _, want := range []string{"state", "videos", "pending", "completed", "3"} {
		if !strings.Contains(lower, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatalf("expected empty output without headers")
	}
}

func TestTokenCommandPrintsToken(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")
	root := newRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"token", "--subject", "ops", "--ttl", "1h"})
	if err := root.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(buf.String()), ".") != 2 {
		t.Fatalf("expected a JWT, got %q", buf.String())
	}
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "")
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error without a secret")
	}
}
