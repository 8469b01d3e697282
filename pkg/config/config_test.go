package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParse_DefaultFileMatchesDefault(t *testing.T) {
	cfg, err := Parse(DefaultFile())
	if err != nil {
		t.Fatalf("parse default file: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("default file mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_EmptyDocumentUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_NamespacesKeepDocumentOrder(t *testing.T) {
	cfg, err := Parse([]byte(`
paths:
  zeta: themes/zeta
  __main__: [templates, vendor/templates]
  admin:
    - admin/views
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := Namespaces{
		{Name: "zeta", Paths: []string{"themes/zeta"}},
		{Name: MainNamespace, Paths: []string{"templates", "vendor/templates"}},
		{Name: "admin", Paths: []string{"admin/views"}},
	}
	if diff := cmp.Diff(want, cfg.Paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_PathsListTargetsMainNamespace(t *testing.T) {
	cfg, err := Parse([]byte("paths: [views]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	paths, ok := cfg.Paths.Lookup(MainNamespace)
	if !ok {
		t.Fatalf("main namespace missing: %+v", cfg.Paths)
	}
	if diff := cmp.Diff([]string{"views"}, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Facades(t *testing.T) {
	cfg, err := Parse([]byte(`
facades:
  Html:
    class: html
    is_safe: true
  Form:
    class: form
    is_safe: [open, close]
  Text:
    class: text
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := Facades{
		{Name: "Html", Class: "html", Safe: true},
		{Name: "Form", Class: "form", SafeMethods: []string{"open", "close"}},
		{Name: "Text", Class: "text"},
	}
	if diff := cmp.Diff(want, cfg.Facades); diff != "" {
		t.Fatalf("facades mismatch (-want +got):\n%s", diff)
	}

	if !cfg.Facades[1].IsSafe("open") || cfg.Facades[1].IsSafe("label") {
		t.Fatalf("unexpected IsSafe result for %+v", cfg.Facades[1])
	}
	if cfg.Facades[2].IsSafe("anything") {
		t.Fatalf("facade without is_safe must escape")
	}
}

func TestParse_RejectsMalformedFacades(t *testing.T) {
	cases := map[string]string{
		"missing class key":   "facades:\n  Html:\n    missing_class_key: html\n",
		"list instead of map": "facades:\n  - html\n",
		"scalar value":        "facades:\n  Html: html\n",
		"is_safe mapping":     "facades:\n  Html:\n    class: html\n    is_safe: {a: b}\n",
		"empty class":         "facades:\n  Html:\n    class: \"\"\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, ErrFacadeStructure) {
				t.Fatalf("expected ErrFacadeStructure, got %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty extension":   func(c *Config) { c.Extension = " . " },
		"negative cache":    func(c *Config) { c.CacheSize = -1 },
		"negative context":  func(c *Config) { c.Lint.ContextLines = -2 },
		"duplicate ns":      func(c *Config) { c.Paths = append(c.Paths, Namespace{Name: MainNamespace, Paths: []string{"x"}}) },
		"namespace no path": func(c *Config) { c.Paths = Namespaces{{Name: "admin"}} },
		"duplicate facade": func(c *Config) {
			c.Facades = Facades{{Name: "Html", Class: "a"}, {Name: "Html", Class: "b"}}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestValidate_NormalisesExtension(t *testing.T) {
	cfg := Default()
	cfg.Extension = ".html.twig"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Extension != "html.twig" {
		t.Fatalf("extension = %q", cfg.Extension)
	}
}

func TestContextLinesFallsBackToDefault(t *testing.T) {
	cfg := Default()
	cfg.Lint.ContextLines = 0
	if got := cfg.ContextLines(); got != DefaultContextLines {
		t.Fatalf("context lines = %d", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero context lines must validate: %v", err)
	}
	parsed, err := Parse([]byte("lint:\n  context_lines: 0\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := parsed.ContextLines(); got != DefaultContextLines {
		t.Fatalf("parsed context lines = %d", got)
	}
	cfg.Lint.ContextLines = 5
	if got := cfg.ContextLines(); got != 5 {
		t.Fatalf("context lines = %d", got)
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, found, err := LoadOrDefault(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if found {
		t.Fatalf("missing file reported as found")
	}
	if cfg.Extension != "twig" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("extension: html\nunknown_option: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := LoadOrDefault(path); err == nil || !strings.Contains(err.Error(), "unknown_option") {
		t.Fatalf("expected unknown field error, got %v", err)
	}

	if err := os.WriteFile(path, []byte("extension: html\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, found, err = LoadOrDefault(path)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if cfg.Extension != "html" {
		t.Fatalf("extension = %q", cfg.Extension)
	}
}
