package view

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRenderStandaloneTemplate(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "hello.html")
	content := `<!doctype html><html><body>{{ .Name }} {{ money .Price }}</body></html>`
	if err := os.WriteFile(page, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	ResetForTests()
	SetBaseDir(dir)
	t.Cleanup(ResetForTests)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	err := Render(w, r, "hello.html", map[string]any{
		"Name":  "Acme",
		"Price": decimal.RequireFromString("59.97"),
	})
	if err != nil {
		t.Fatal(err)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Acme 59.97") {
		t.Fatalf("rendered body = %q", body)
	}
}

func TestRenderWithLayout(t *testing.T) {
	dir := t.TempDir()
	layout := `<html><body>{{ block "content" . }}{{ end }}</body></html>`
	page := `{{ define "content" }}<p>{{ .Msg }}</p>{{ end }}`
	if err := os.WriteFile(filepath.Join(dir, "layout.html"), []byte(layout), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "page.html"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	ResetForTests()
	SetBaseDir(dir)
	t.Cleanup(ResetForTests)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	if err := Render(w, r, "page.html", map[string]any{"Msg": "ok"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(w.Body.String(), "<p>ok</p>") {
		t.Fatalf("layout render = %q", w.Body.String())
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	ResetForTests()
	SetBaseDir(t.TempDir())
	t.Cleanup(ResetForTests)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	if err := Render(w, r, "nope.html", nil); err == nil {
		t.Fatal("expected error for missing template")
	}
}
