// Package mailing renders flow message content and talks to the delivery
// provider. Templates use the Liquid template language.
package mailing

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/dinelight/guestflow/internal/pkg/logger"
)

// RenderMode determines how the template engine handles errors.
type RenderMode int

const (
	// RenderModeLax falls back to the raw template on error, for
	// production sends where something must go out.
	RenderModeLax RenderMode = iota
	// RenderModeStrict surfaces errors, for template validation in the
	// flow editor.
	RenderModeStrict
)

// TemplateService handles Liquid template rendering with parse caching.
// Safe for concurrent use.
type TemplateService struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewTemplateService creates a template service with the guest-facing
// custom filters registered.
func NewTemplateService() *TemplateService {
	ts := &TemplateService{engine: liquid.NewEngine()}
	ts.registerFilters()
	return ts
}

func (ts *TemplateService) registerFilters() {
	// {{ first_name | default: "there" }}
	ts.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// {{ first_name | capitalize }}
	ts.engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	})

	// {{ email | urlencode }}
	ts.engine.RegisterFilter("urlencode", func(s string) string {
		return url.QueryEscape(s)
	})

	// {{ guest_note | escape }}
	ts.engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})

	// {{ average_spend | currency }}
	ts.engine.RegisterFilter("currency", func(value interface{}) string {
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return v
			}
			f = parsed
		default:
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("$%.2f", f)
	})
}

// Render parses and renders a template against the given context. When a
// cacheKey is provided the parsed template is reused on later calls.
func (ts *TemplateService) Render(cacheKey, templateStr string, data map[string]any) (string, error) {
	if cacheKey != "" {
		if cached, ok := ts.cache.Load(cacheKey); ok {
			return cached.(*liquid.Template).RenderString(data)
		}
	}

	tpl, err := ts.engine.ParseString(templateStr)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	if cacheKey != "" {
		ts.cache.Store(cacheKey, tpl)
	}
	return tpl.RenderString(data)
}

// RenderWithMode renders without caching. Lax mode returns the raw
// template on error so a broken placeholder degrades instead of blocking
// a send; strict mode surfaces the error for the flow editor.
func (ts *TemplateService) RenderWithMode(templateStr string, data map[string]any, mode RenderMode) (string, error) {
	out, err := ts.engine.ParseAndRenderString(templateStr, data)
	if err != nil {
		if mode == RenderModeStrict {
			return "", err
		}
		logger.Warn("template render degraded", "error", err.Error())
		return templateStr, nil
	}
	return out, nil
}
