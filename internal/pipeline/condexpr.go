package pipeline

import (
	"strconv"
	"strings"
)

// condEvalCtx is the narrow view of a JobContext/PluginResult a
// condition_expr predicate is allowed to read. Deliberately not the
// plugins.JobContext itself: the grammar below only ever needs an
// options map, the running risk score, and the previous stage's success
// flag, and it should see nothing else.
type condEvalCtx struct {
	options   map[string]interface{}
	riskScore float64
	success   bool
	hasResult bool
}

// evalConditionExpr parses and evaluates a condition_expr string against
// ctx. condition_expr is never a dynamic/arbitrary expression
// evaluator: the grammar is closed. Supported forms, combined with
// "and"/"or" ("or" is split first, so "and" binds tighter: "a and b or
// c" reads as "(a and b) or c"):
//
//	ctx.options.<key> == "<literal>"
//	ctx.options.<key> exists
//	result.success
//	result.risk_score >= <float>
//
// Any parse or evaluation failure yields false, never an error — a
// malformed expression skips the stage rather than aborting the
// pipeline.
func evalConditionExpr(expr string, ctx condEvalCtx) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}

	if strings.Contains(expr, " or ") {
		parts := strings.SplitN(expr, " or ", 2)
		return evalConditionExpr(parts[0], ctx) || evalConditionExpr(parts[1], ctx)
	}
	if strings.Contains(expr, " and ") {
		parts := strings.SplitN(expr, " and ", 2)
		return evalConditionExpr(parts[0], ctx) && evalConditionExpr(parts[1], ctx)
	}

	return evalPredicate(expr, ctx)
}

func evalPredicate(pred string, ctx condEvalCtx) bool {
	pred = strings.TrimSpace(pred)

	switch {
	case pred == "result.success":
		return ctx.hasResult && ctx.success

	case strings.HasPrefix(pred, "result.risk_score >= "):
		rest := strings.TrimSpace(strings.TrimPrefix(pred, "result.risk_score >= "))
		threshold, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return false
		}
		return ctx.riskScore >= threshold

	case strings.HasPrefix(pred, "ctx.options.") && strings.HasSuffix(pred, " exists"):
		key := strings.TrimSuffix(strings.TrimPrefix(pred, "ctx.options."), " exists")
		key = strings.TrimSpace(key)
		_, ok := ctx.options[key]
		return ok

	case strings.HasPrefix(pred, "ctx.options."):
		rest := strings.TrimPrefix(pred, "ctx.options.")
		eq := strings.Index(rest, "==")
		if eq < 0 {
			return false
		}
		key := strings.TrimSpace(rest[:eq])
		literal := strings.TrimSpace(rest[eq+2:])
		literal = strings.Trim(literal, `"`)
		v, ok := ctx.options[key]
		if !ok {
			return false
		}
		s, ok := v.(string)
		return ok && s == literal

	default:
		return false
	}
}
