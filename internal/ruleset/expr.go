package ruleset

import (
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"propdesk/internal/domain"
	"propdesk/internal/scoring"
	"propdesk/internal/segment"
)

// exprEnv compiles rule expressions written against:
//
//	e      map of the entity's fields
//	score  the entity's score (segment rules only; 0 in scoring rules)
//	now    the analysis clock
type exprEnv struct {
	env *cel.Env
}

func newExprEnv() (*exprEnv, error) {
	env, err := cel.NewEnv(
		cel.Variable("e", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("score", cel.IntType),
		cel.Variable("now", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("create expression environment: %w", err)
	}
	return &exprEnv{env: env}, nil
}

type compiledExpr struct {
	source string
	prg    cel.Program
}

func (x *exprEnv) compile(src string) (*compiledExpr, error) {
	ast, issues := x.env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", src, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression %q must evaluate to bool, got %s", src, out)
	}
	prg, err := x.env.Program(ast, cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", src, err)
	}
	return &compiledExpr{source: src, prg: prg}, nil
}

// eval reports false for evaluation errors such as a missing field, so
// incomplete records simply do not match.
func (c *compiledExpr) eval(e domain.Entity, score int, now time.Time) bool {
	fields := e.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	out, _, err := c.prg.Eval(map[string]any{
		"e":     fields,
		"score": score,
		"now":   now,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

func (c *compiledExpr) predicate() scoring.Predicate {
	return func(e domain.Entity, now time.Time) bool { return c.eval(e, 0, now) }
}

func (c *compiledExpr) condition() segment.Condition {
	return func(e domain.Entity, score int, now time.Time) bool { return c.eval(e, score, now) }
}
