package template

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Engine renders {{expression}} placeholders. It is safe for concurrent
// use; sequences synchronize internally.
type Engine struct {
	sequences *SequenceStore
	now       func() time.Time
}

// New creates a template engine with its own sequence store.
func New() *Engine {
	return &Engine{sequences: NewSequenceStore(), now: time.Now}
}

// NewWithClock creates a template engine whose time variables read now.
func NewWithClock(now func() time.Time) *Engine {
	e := New()
	if now != nil {
		e.now = now
	}
	return e
}

// Sequences returns the engine's sequence store.
func (e *Engine) Sequences() *SequenceStore {
	return e.sequences
}

var placeholder = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// variables are the expressions that take no arguments.
var variables = map[string]func(e *Engine, ctx *Context) string{
	"now":               func(e *Engine, _ *Context) string { return e.now().Format(time.RFC3339) },
	"timestamp":         func(e *Engine, _ *Context) string { return strconv.FormatInt(e.now().Unix(), 10) },
	"timestamp.unix":    func(e *Engine, _ *Context) string { return strconv.FormatInt(e.now().Unix(), 10) },
	"timestamp.unix_ms": func(e *Engine, _ *Context) string { return strconv.FormatInt(e.now().UnixMilli(), 10) },
	"timestamp.iso":     func(e *Engine, _ *Context) string { return e.now().UTC().Format(time.RFC3339Nano) },
	"uuid":              func(_ *Engine, ctx *Context) string { return sourceOf(ctx).uuid() },
	"uuid.short":        func(_ *Engine, ctx *Context) string { return sourceOf(ctx).uuid()[:8] },
	"random.int":        func(_ *Engine, ctx *Context) string { return sourceOf(ctx).intRange(0, 100) },
	"random.string":     func(_ *Engine, ctx *Context) string { return sourceOf(ctx).alnum(10) },
}

// Process replaces every {{expression}} in text. Expressions that cannot
// be evaluated render as the empty string, so the error is always nil.
func (e *Engine) Process(text string, ctx *Context) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	out := placeholder.ReplaceAllStringFunc(text, func(m string) string {
		return e.evaluate(placeholder.FindStringSubmatch(m)[1], ctx)
	})
	return out, nil
}

// ProcessInterface renders every string inside a decoded JSON value.
func (e *Engine) ProcessInterface(data interface{}, ctx *Context) interface{} {
	switch v := data.(type) {
	case string:
		out, _ := e.Process(v, ctx)
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			out[key] = e.ProcessInterface(val, ctx)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = e.ProcessInterface(val, ctx)
		}
		return out
	}
	return data
}

func (e *Engine) evaluate(expr string, ctx *Context) string {
	expr = strings.TrimSpace(expr)
	if fn, ok := variables[expr]; ok {
		return fn(e, ctx)
	}
	if field, ok := strings.CutPrefix(expr, "request."); ok && !strings.ContainsAny(field, " (") {
		return lookupRequest(ctx, field)
	}
	return e.call(parseCall(expr), ctx)
}

func (e *Engine) call(c call, ctx *Context) string {
	switch c.name {
	case "upper", "lower":
		if len(c.args) != 1 {
			return ""
		}
		v := e.argument(c.args[0], ctx)
		if c.name == "upper" {
			return strings.ToUpper(v)
		}
		return strings.ToLower(v)
	case "default":
		if len(c.args) < 2 {
			return ""
		}
		if v := e.argument(c.args[0], ctx); v != "" {
			return v
		}
		return unquote(strings.Join(c.args[1:], " "))
	case "random.int":
		if len(c.args) != 2 {
			return ""
		}
		lo, err1 := strconv.Atoi(c.args[0])
		hi, err2 := strconv.Atoi(c.args[1])
		if err1 != nil || err2 != nil {
			return ""
		}
		return sourceOf(ctx).intRange(lo, hi)
	case "random.string":
		n, err := strconv.Atoi(firstArg(c.args))
		if err != nil || n <= 0 {
			n = 10
		}
		return sourceOf(ctx).alnum(n)
	case "sequence":
		return e.sequence(c.args)
	}
	return ""
}

// argument resolves a function argument: quoted strings are literals,
// request fields and variables are evaluated, and anything else is taken
// as written.
func (e *Engine) argument(ref string, ctx *Context) string {
	ref = strings.TrimSpace(ref)
	switch {
	case isQuoted(ref):
		return ref[1 : len(ref)-1]
	case strings.HasPrefix(ref, "request."):
		return lookupRequest(ctx, ref[len("request."):])
	}
	if fn, ok := variables[ref]; ok {
		return fn(e, ctx)
	}
	return ref
}

func (e *Engine) sequence(args []string) string {
	if len(args) == 0 || len(args) > 2 {
		return ""
	}
	name := unquote(args[0])
	if name == "" {
		return ""
	}
	start := int64(1)
	if len(args) == 2 {
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return ""
		}
		start = n
	}
	return strconv.FormatInt(e.sequences.Next(name, start), 10)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
