// Package authz provides a CEL-based policy predicate evaluator, an
// extensibility point for authorization decisions beyond the built-in
// role/claim/wildcard rule in auth.Authorize.
package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// maxExpressionLength bounds the size of a compiled policy expression.
const maxExpressionLength = 1024

// maxCostBudget bounds CEL runtime cost to prevent a pathological
// expression from burning CPU.
const maxCostBudget = 100_000

// maxNestingDepth bounds parenthesis/bracket/brace nesting depth.
const maxNestingDepth = 50

// evalTimeout bounds a single evaluation's wall-clock time.
const evalTimeout = 2 * time.Second

// interruptCheckFreq is how often (in comprehension iterations) context
// cancellation is checked during evaluation.
const interruptCheckFreq = 100

// EvaluationContext is the set of variables a policy expression may
// reference.
type EvaluationContext struct {
	IdentityID string
	Roles      []string
	Claims     []string
	Resource   string
	Action     string
	Params     map[string]any
	RequestAt  time.Time
}

// Evaluator compiles and evaluates claims-based policy expressions.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates an Evaluator with the claims policy environment.
func NewEvaluator() (*Evaluator, error) {
	env, err := newPolicyEnvironment()
	if err != nil {
		return nil, fmt.Errorf("create policy environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

func newPolicyEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("identity_id", cel.StringType),
		cel.Variable("roles", cel.ListType(cel.StringType)),
		cel.Variable("claims", cel.ListType(cel.StringType)),
		cel.Variable("resource", cel.StringType),
		cel.Variable("action", cel.StringType),
		cel.Variable("params", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("request_time", cel.TimestampType),

		// has_claim: true if claims contains an exact "resource:action" entry.
		cel.Function("has_claim",
			cel.Overload("has_claim_list_string",
				[]*cel.Type{cel.ListType(cel.StringType), cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(claimsVal, wantVal ref.Val) ref.Val {
					want, ok := wantVal.Value().(string)
					if !ok {
						return types.Bool(false)
					}
					list, ok := claimsVal.Value().([]string)
					if !ok {
						return types.Bool(false)
					}
					for _, c := range list {
						if c == want {
							return types.Bool(true)
						}
					}
					return types.Bool(false)
				}),
			),
		),

		// param: extract a parameter by key, or null when absent.
		cel.Function("param",
			cel.Overload("param_map_string",
				[]*cel.Type{cel.MapType(cel.StringType, cel.DynType), cel.StringType},
				cel.DynType,
				cel.BinaryBinding(func(mapVal, keyVal ref.Val) ref.Val {
					key, ok := keyVal.Value().(string)
					if !ok {
						return types.NullValue
					}
					if goMap, ok := mapVal.Value().(map[string]any); ok {
						if v, found := goMap[key]; found {
							return types.DefaultTypeAdapter.NativeToValue(v)
						}
					}
					return types.NullValue
				}),
			),
		),
	)
}

// Compile parses and type-checks a policy expression, returning a program
// ready for repeated evaluation.
func (e *Evaluator) Compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation failed: %w", issues.Err())
	}
	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation failed: %w", err)
	}
	return prg, nil
}

// ValidateExpression checks that expr is syntactically valid, within size
// and nesting limits, and compiles cleanly.
func (e *Evaluator) ValidateExpression(expr string) error {
	if expr == "" {
		return errors.New("expression is empty")
	}
	if len(expr) > maxExpressionLength {
		return fmt.Errorf("expression too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}
	if err := validateNesting(expr); err != nil {
		return err
	}
	if _, err := e.Compile(expr); err != nil {
		return fmt.Errorf("invalid expression: %w", err)
	}
	return nil
}

func validateNesting(expr string) error {
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}

// Evaluate runs a compiled program against evalCtx, enforcing evalTimeout.
func (e *Evaluator) Evaluate(ctx context.Context, prg cel.Program, evalCtx EvaluationContext) (bool, error) {
	runCtx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	result, _, err := prg.ContextEval(runCtx, buildActivation(evalCtx))
	if err != nil {
		return false, fmt.Errorf("evaluation failed: %w", err)
	}
	boolResult, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return a boolean, got %T", result.Value())
	}
	return boolResult, nil
}

func buildActivation(evalCtx EvaluationContext) map[string]any {
	roles := evalCtx.Roles
	if roles == nil {
		roles = []string{}
	}
	claims := evalCtx.Claims
	if claims == nil {
		claims = []string{}
	}
	params := evalCtx.Params
	if params == nil {
		params = map[string]any{}
	}
	requestAt := evalCtx.RequestAt
	if requestAt.IsZero() {
		requestAt = time.Now().UTC()
	}
	return map[string]any{
		"identity_id":  evalCtx.IdentityID,
		"roles":        roles,
		"claims":       claims,
		"resource":     evalCtx.Resource,
		"action":       evalCtx.Action,
		"params":       params,
		"request_time": requestAt,
	}
}
