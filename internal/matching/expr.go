package matching

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/intercept/pkg/mock"
)

// exprEnv is the environment visible to matcher expressions, e.g.
//
//	method == "POST" && headers["X-Tenant"] == "acme" && json.qty > 2
type exprEnv struct {
	Method  string            `expr:"method"`
	Host    string            `expr:"host"`
	Path    string            `expr:"path"`
	Headers map[string]string `expr:"headers"`
	Query   map[string]string `expr:"query"`
	Body    string            `expr:"body"`
	JSON    interface{}       `expr:"json"`
}

func compileExpr(source string) (*vm.Program, error) {
	program, err := expr.Compile(source, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", source, err)
	}
	return program, nil
}

func newExprEnv(r *mock.Request) exprEnv {
	env := exprEnv{
		Method:  r.Method,
		Host:    r.Host,
		Path:    r.Path,
		Headers: make(map[string]string, len(r.Header)),
		Query:   make(map[string]string, len(r.Query)),
		Body:    string(r.Body),
	}
	for name := range r.Header {
		env.Headers[name] = r.Header.Get(name)
	}
	for _, key := range r.Query.Keys() {
		env.Query[key] = r.Query.Get(key)
	}
	if v, ok := r.Body.JSON(); ok {
		env.JSON = v
	}
	return env
}

// runExpr evaluates a compiled program. Runtime errors count as a mismatch.
func runExpr(program *vm.Program, env exprEnv) (bool, error) {
	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	b, _ := out.(bool)
	return b, nil
}
