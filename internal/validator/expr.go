package validator

import (
	"context"
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// Expr compiles an expr-lang expression into a predicate. The field value is
// bound to the variable "value", and the expression must evaluate to a bool:
//
//	rule, err := validator.Expr(`type(value) == "string" && len(value) > 0`)
func Expr(src string) (Predicate, error) {
	program, err := exprlang.Compile(src,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile predicate %q: %w", src, err)
	}
	return exprPredicate(program), nil
}

// MustExpr is Expr for statically known expressions; it panics on a compile
// error.
func MustExpr(src string) Predicate {
	p, err := Expr(src)
	if err != nil {
		panic(err)
	}
	return p
}

func exprPredicate(program *exprvm.Program) Predicate {
	return func(_ context.Context, value any) (bool, error) {
		out, err := exprlang.Run(program, map[string]any{"value": value})
		if err != nil {
			return false, err
		}
		ok, isBool := out.(bool)
		if !isBool {
			return false, fmt.Errorf("predicate returned %T, want bool", out)
		}
		return ok, nil
	}
}

// Func adapts a plain synchronous check into a Predicate.
func Func(fn func(value any) bool) Predicate {
	return func(_ context.Context, value any) (bool, error) {
		return fn(value), nil
	}
}

// IsString accepts string values. Common enough in schemas to ship here.
var IsString = Func(func(value any) bool {
	_, ok := value.(string)
	return ok
})
