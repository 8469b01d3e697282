package lint

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-twig/pkg/console"
	"github.com/goliatone/go-twig/pkg/engine"
	"github.com/goliatone/go-twig/pkg/find"
	"github.com/goliatone/go-twig/pkg/loader"
	"github.com/goliatone/go-twig/pkg/testsupport"
)

type fakeProvider struct {
	namespaces []string
	paths      map[string][]string
	sources    map[string]loader.Source
	resolved   []string
}

func (p *fakeProvider) Namespaces() []string { return p.namespaces }
func (p *fakeProvider) Paths(ns string) []string { return p.paths[ns] }

func (p *fakeProvider) Source(name string) (loader.Source, error) {
	p.resolved = append(p.resolved, name)
	src, ok := p.sources[name]
	if !ok {
		return loader.Source{}, fmt.Errorf("%w: %s", loader.ErrTemplateNotFound, name)
	}
	return src, nil
}

type fakeFinder map[string][]string

func (f fakeFinder) Find(root, pattern string) ([]string, error) {
	if pattern != "*.twig" {
		return nil, fmt.Errorf("unexpected pattern %q", pattern)
	}
	files, ok := f[root]
	if !ok {
		return nil, errors.New("no such root")
	}
	return files, nil
}

type lineErr struct {
	line int
	msg  string
}

func (e lineErr) Error() string { return e.msg }
func (e lineErr) TemplateLine() int { return e.line }
func (e lineErr) RawMessage() string { return e.msg }

type fakeCompiler map[string]error

func (c fakeCompiler) CompileSource(src loader.Source) error { return c[src.Name] }

func TestContext(t *testing.T) {
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	source := strings.Join(lines, "\n")

	numbers := func(ctx []ContextLine) []int {
		out := make([]int, 0, len(ctx))
		for _, l := range ctx {
			if l.Text != fmt.Sprintf("line %d", l.Number) {
				t.Fatalf("line %d has text %q", l.Number, l.Text)
			}
			out = append(out, l.Number)
		}
		return out
	}

	cases := []struct {
		name   string
		line   int
		radius int
		want   []int
	}{
		{name: "middle", line: 10, radius: 3, want: []int{8, 9, 10, 11, 12}},
		{name: "clipped at start", line: 2, radius: 3, want: []int{1, 2, 3, 4}},
		{name: "first line", line: 1, radius: 3, want: []int{1, 2, 3}},
		{name: "clipped at end", line: 20, radius: 3, want: []int{18, 19, 20}},
		{name: "wider radius", line: 10, radius: 5, want: []int{6, 7, 8, 9, 10, 11, 12, 13, 14}},
		{name: "no line", line: -1, radius: 3, want: []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, numbers(Context(source, tc.line, tc.radius))); diff != "" {
				t.Fatalf("context mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunner_OrderAndDeduplication(t *testing.T) {
	provider := &fakeProvider{
		namespaces: []string{loader.MainNamespace, "admin"},
		paths: map[string][]string{
			loader.MainNamespace: {"/theme", "/base"},
			"admin":              {"/admin"},
		},
		sources: map[string]loader.Source{
			"@__main__/page.twig":         {Name: "@__main__/page.twig", Path: "/theme/page.twig", Code: "theme"},
			"@__main__/partials/nav.twig": {Name: "@__main__/partials/nav.twig", Path: "/base/partials/nav.twig", Code: "nav"},
			"@admin/layout.twig":          {Name: "@admin/layout.twig", Path: "/admin/layout.twig", Code: "{% bad %}"},
		},
	}
	finder := fakeFinder{
		"/theme": {"page.twig"},
		"/base":  {"page.twig", "partials/nav.twig"},
		"/admin": {"layout.twig"},
	}
	compiler := fakeCompiler{"@admin/layout.twig": lineErr{line: 1, msg: "bad tag"}}

	runner, err := NewRunner(provider, compiler, "twig", WithFinder(finder))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	results, err := runner.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []Result{
		{Name: "@__main__/page.twig", Source: "theme", File: "/theme/page.twig", Valid: true},
		{Name: "@__main__/partials/nav.twig", Source: "nav", File: "/base/partials/nav.twig", Valid: true},
		{Name: "@admin/layout.twig", Source: "{% bad %}", File: "/admin/layout.twig", Err: &ErrorInfo{RawMessage: "bad tag", Line: 1}},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"@__main__/page.twig", "@__main__/partials/nav.twig", "@admin/layout.twig"}, provider.resolved); diff != "" {
		t.Fatalf("resolved mismatch (-want +got):\n%s", diff)
	}

	for _, r := range results {
		if r.Valid != (r.Err == nil) {
			t.Fatalf("result %s: valid=%v err=%v", r.Name, r.Valid, r.Err)
		}
	}
	s := Summarize(results)
	if s.Total != 3 || s.Invalid != 1 || s.Valid()+s.Invalid != s.Total || s.ExitCode() != 1 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestRunner_NonPositiveLineIsGeneric(t *testing.T) {
	provider := &fakeProvider{
		namespaces: []string{"app"},
		paths:      map[string][]string{"app": {"/app"}},
		sources:    map[string]loader.Source{"@app/a.twig": {Name: "@app/a.twig", Path: "/app/a.twig"}},
	}
	runner, err := NewRunner(provider, fakeCompiler{"@app/a.twig": lineErr{line: 0, msg: "eof"}}, "twig",
		WithFinder(fakeFinder{"/app": {"a.twig"}}))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	results, err := runner.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if results[0].Err == nil || results[0].Err.Line != -1 {
		t.Fatalf("error info = %+v", results[0].Err)
	}
}

func TestRunner_FatalErrors(t *testing.T) {
	base := func() *fakeProvider {
		return &fakeProvider{
			namespaces: []string{"app"},
			paths:      map[string][]string{"app": {"/app"}},
			sources:    map[string]loader.Source{"@app/a.twig": {Name: "@app/a.twig", Path: "/app/a.twig"}},
		}
	}

	t.Run("resolution", func(t *testing.T) {
		runner, _ := NewRunner(base(), fakeCompiler{}, "twig", WithFinder(fakeFinder{"/app": {"a.twig", "gone.twig"}}))
		if _, err := runner.Run(); !errors.Is(err, loader.ErrTemplateNotFound) {
			t.Fatalf("expected ErrTemplateNotFound, got %v", err)
		}
	})
	t.Run("enumeration", func(t *testing.T) {
		runner, _ := NewRunner(base(), fakeCompiler{}, "twig", WithFinder(fakeFinder{}))
		if _, err := runner.Run(); err == nil || !strings.Contains(err.Error(), "enumerate /app") {
			t.Fatalf("expected enumeration error, got %v", err)
		}
	})
	t.Run("compile without line", func(t *testing.T) {
		boom := errors.New("engine exploded")
		runner, _ := NewRunner(base(), fakeCompiler{"@app/a.twig": boom}, "twig", WithFinder(fakeFinder{"/app": {"a.twig"}}))
		if _, err := runner.Run(); !errors.Is(err, boom) {
			t.Fatalf("expected compile error, got %v", err)
		}
	})
}

func TestNewRunner_Misconfigured(t *testing.T) {
	if _, err := NewRunner(nil, fakeCompiler{}, "twig"); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
	if _, err := NewRunner(&fakeProvider{}, nil, "twig"); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
	if _, err := NewRunner(&fakeProvider{}, fakeCompiler{}, ""); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}

func report(results []Result, verbose bool) (string, Summary) {
	var buf bytes.Buffer
	out := console.New(&buf, console.WithVerbose(verbose))
	summary := NewReporter(out, 0).Report(results)
	return buf.String(), summary
}

func TestReporter_Summaries(t *testing.T) {
	got, s := report(nil, true)
	if got != "No twig files found in the loader paths.\n" || s.ExitCode() != 0 {
		t.Fatalf("empty report = %q, exit %d", got, s.ExitCode())
	}

	valid := []Result{
		{File: "/tpl/a.twig", Valid: true},
		{File: "/tpl/b.twig", Valid: true},
	}
	got, s = report(valid, false)
	if got != "All 2 Twig files contain valid syntax.\n" || s.ExitCode() != 0 {
		t.Fatalf("valid report = %q, exit %d", got, s.ExitCode())
	}

	got, _ = report(valid, true)
	want := "OK in /tpl/a.twig\nOK in /tpl/b.twig\nAll 2 Twig files contain valid syntax.\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("verbose report mismatch (-want +got):\n%s", diff)
	}
}

func TestReporter_MixedGolden(t *testing.T) {
	results := []Result{
		{File: "/tpl/a.twig", Valid: true},
		{File: "/tpl/b.twig", Err: &ErrorInfo{RawMessage: "Unexpected end of template", Line: -1}},
		{
			File:   "/tpl/c.twig",
			Source: "one\ntwo\n{% nope %}\nfour\nfive\nsix",
			Err:    &ErrorInfo{RawMessage: "Tag 'nope' not found", Line: 3},
		},
	}
	got, s := report(results, true)
	if s.ExitCode() != 1 || s.Valid() != 1 || s.Invalid != 2 {
		t.Fatalf("summary = %+v", s)
	}

	golden := filepath.Join("testdata", "report_mixed_verbose.golden")
	if testsupport.WriteMaybeGolden(t, golden, []byte(got)) {
		return
	}
	if diff := testsupport.CompareGolden(testsupport.MustReadGoldenString(t, golden), got); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}

	quiet, _ := report(results, false)
	if strings.Contains(quiet, "OK in") {
		t.Fatalf("non-verbose report lists valid files:\n%s", quiet)
	}
}

func TestReporter_LinePastEnd(t *testing.T) {
	got, _ := report([]Result{{File: "/tpl/x.twig", Source: "a\nb", Err: &ErrorInfo{RawMessage: "boom", Line: 9}}}, false)
	if !strings.Contains(got, "ERROR in /tpl/x.twig (line 9)\n>> boom\n") {
		t.Fatalf("report = %q", got)
	}
}

func TestRun_WithEngine(t *testing.T) {
	root := testsupport.TemplateTree(t, map[string]string{
		"base.twig":          "<html>{% block body %}{% endblock %}</html>",
		"page.twig":          "{% extends \"base.twig\" %}\n{% block body %}{{ title }}{% endblock %}",
		"partials/loop.twig": "{% for item in items %}\n{{ item }}\n{% endfor %}",
		"broken.twig":        "one\ntwo\n{% nope %}\nfour",
		"_draft.twig":        "{% if %}",
		"notes.txt":          "{% nope %}",
	})

	l := loader.New()
	if err := l.AddPath(root, ""); err != nil {
		t.Fatalf("add path: %v", err)
	}
	env, err := engine.New(l)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	finder, err := find.New("_*.twig")
	if err != nil {
		t.Fatalf("finder: %v", err)
	}
	runner, err := NewRunner(l, env, env.Extension(), WithFinder(finder))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	first, err := runner.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	second, err := runner.Run()
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("runs differ (-first +second):\n%s", diff)
	}

	if len(first) != 4 {
		t.Fatalf("results = %d, want 4", len(first))
	}
	var broken *Result
	for i := range first {
		if first[i].Name == "@__main__/broken.twig" {
			broken = &first[i]
			continue
		}
		if !first[i].Valid {
			t.Fatalf("%s unexpectedly invalid: %+v", first[i].Name, first[i].Err)
		}
	}
	if broken == nil || broken.Valid || broken.Err.Line != 3 {
		t.Fatalf("broken result = %+v", broken)
	}
	if broken.File != filepath.Join(root, "broken.twig") {
		t.Fatalf("file = %q", broken.File)
	}
}

func TestRun_WithEngine_ParentErrorsStayWithParent(t *testing.T) {
	root := testsupport.TemplateTree(t, map[string]string{
		"base.twig":          "<html>\n<body>\n{% block body %}{% endblock %}\n</body>\n{% nope %}\n</html>",
		"page.twig":          "{% extends \"base.twig\" %}\n{% block body %}hi{% endblock %}",
		"child_missing.twig": "{% extends \"missing.twig\" %}\n{% block body %}hi{% endblock %}",
	})

	l := loader.New()
	if err := l.AddPath(root, ""); err != nil {
		t.Fatalf("add path: %v", err)
	}
	env, err := engine.New(l)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	runner, err := NewRunner(l, env, env.Extension())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	results, err := runner.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	invalid := map[string]int{}
	for _, result := range results {
		if !result.Valid {
			invalid[result.Name] = result.Err.Line
		}
	}
	if diff := cmp.Diff(map[string]int{"@__main__/base.twig": 5}, invalid); diff != "" {
		t.Fatalf("invalid templates mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	summary := NewReporter(console.New(&buf), 0).Report(results)
	if summary != (Summary{Total: 3, Invalid: 1}) {
		t.Fatalf("summary = %+v", summary)
	}
	if !strings.Contains(buf.String(), "2 Twig files have valid syntax and 1 contain errors.") {
		t.Fatalf("report:\n%s", buf.String())
	}
}
