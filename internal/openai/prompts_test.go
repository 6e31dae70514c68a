package openai

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderTemplate(t *testing.T) {
	r := RenderTemplate("hello {{A}} {{B}}", map[string]string{
		"A": "one",
		"B": "two",
	})
	if r != "hello one two" {
		t.Fatalf("unexpected render result: %s", r)
	}
}

func TestBuildModerationUserPrompt(t *testing.T) {
	prompt := BuildModerationUserPrompt("article", "Launch day", "we shipped it")
	for _, p := range []string{"Content type: article", "Title: Launch day", "we shipped it"} {
		if !strings.Contains(prompt, p) {
			t.Fatalf("prompt missing expected text %q", p)
		}
	}
}

func TestBuildRepairUserPrompt(t *testing.T) {
	prompt := BuildRepairUserPrompt(`{"verdict":`, errors.New("unexpected EOF"))
	for _, p := range []string{`{"verdict":`, "unexpected EOF"} {
		if !strings.Contains(prompt, p) {
			t.Fatalf("prompt missing expected text %q", p)
		}
	}
}
