package mailing

import (
	"strings"
	"testing"
)

func TestRenderSubstitutesVariables(t *testing.T) {
	ts := NewTemplateService()

	out, err := ts.Render("", "Hi {{ first_name }}, see you at {{ location_name }}!", map[string]any{
		"first_name":    "Ava",
		"location_name": "Harbor Bistro",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "Hi Ava, see you at Harbor Bistro!" {
		t.Errorf("rendered %q", out)
	}
}

func TestRenderFilters(t *testing.T) {
	ts := NewTemplateService()

	cases := []struct {
		tpl  string
		data map[string]any
		want string
	}{
		{`{{ first_name | default: "there" }}`, map[string]any{"first_name": ""}, "there"},
		{`{{ first_name | default: "there" }}`, map[string]any{"first_name": "Ava"}, "Ava"},
		{`{{ first_name | capitalize }}`, map[string]any{"first_name": "ava"}, "Ava"},
		{`{{ average_spend | currency }}`, map[string]any{"average_spend": 42.5}, "$42.50"},
		{`{{ note | escape }}`, map[string]any{"note": "<b>hi</b>"}, "&lt;b&gt;hi&lt;/b&gt;"},
	}
	for _, tc := range cases {
		out, err := ts.Render("", tc.tpl, tc.data)
		if err != nil {
			t.Errorf("%s: %v", tc.tpl, err)
			continue
		}
		if out != tc.want {
			t.Errorf("%s = %q, want %q", tc.tpl, out, tc.want)
		}
	}
}

func TestRenderUsesCache(t *testing.T) {
	ts := NewTemplateService()

	if _, err := ts.Render("k1", "Hello {{ first_name }}", map[string]any{"first_name": "Ava"}); err != nil {
		t.Fatalf("first render: %v", err)
	}
	// Second call with the same key must hit the parsed template even if
	// the source string changed.
	out, err := ts.Render("k1", "DIFFERENT", map[string]any{"first_name": "Ben"})
	if err != nil {
		t.Fatalf("cached render: %v", err)
	}
	if out != "Hello Ben" {
		t.Errorf("cached render = %q, want parsed template reuse", out)
	}
}

func TestRenderWithModeLaxDegrades(t *testing.T) {
	ts := NewTemplateService()

	broken := "Hi {% if %}"
	out, err := ts.RenderWithMode(broken, nil, RenderModeLax)
	if err != nil {
		t.Fatalf("lax mode returned error: %v", err)
	}
	if out != broken {
		t.Errorf("lax mode output %q, want raw template fallback", out)
	}

	if _, err := ts.RenderWithMode(broken, nil, RenderModeStrict); err == nil {
		t.Error("strict mode swallowed a parse error")
	}
}

func TestRenderParseErrorSurfaces(t *testing.T) {
	ts := NewTemplateService()

	_, err := ts.Render("", "{% endless", nil)
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}
