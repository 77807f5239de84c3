package msgcat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderEmbedded(t *testing.T) {
	c, err := New("", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("draw.claimed", map[string]any{
		"Side":        "white",
		"Label":       "Threefold repetition",
		"Description": "Position repeated 3 times",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "white claimed a draw: Threefold repetition. Position repeated 3 times." {
		t.Fatalf("got %q", got)
	}
	if _, err := c.Render("draw.claimed", map[string]any{"Side": "white"}); err == nil {
		t.Fatalf("missing data keys must fail")
	}
	if _, err := c.Render("no.such.key", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown key: %v", err)
	}
}

func TestLocales(t *testing.T) {
	ko, err := New("ko", "")
	if err != nil {
		t.Fatalf("New(ko): %v", err)
	}
	if ko.Locale() != "ko" || ko.RenderOr("reason.stalemate", nil, "") != "스테일메이트" {
		t.Fatalf("ko catalog not loaded")
	}
	fallback, err := New("xx", "")
	if err != nil {
		t.Fatalf("New(xx): %v", err)
	}
	if fallback.Locale() != DefaultLocale {
		t.Fatalf("unknown locale should fall back, got %s", fallback.Locale())
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("reason:\n  stalemate: \"Pat\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New("en", dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.RenderOr("reason.stalemate", nil, ""); got != "Pat" {
		t.Fatalf("override not applied: %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("reason:\n  stalemate: \"Again\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New("en", dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("duplicate keys: %v", err)
	}
}

func TestRenderOrNilCatalog(t *testing.T) {
	var c *Catalog
	if got := c.RenderOr("draw.engine", nil, "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}
