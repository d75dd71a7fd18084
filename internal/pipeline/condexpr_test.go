package pipeline

import "testing"

func TestEvalConditionExpr(t *testing.T) {
	cases := []struct {
		name string
		expr string
		ctx  condEvalCtx
		want bool
	}{
		{"empty expr is false", "", condEvalCtx{}, false},
		{"result.success true", "result.success", condEvalCtx{hasResult: true, success: true}, true},
		{"result.success without a result", "result.success", condEvalCtx{hasResult: false, success: true}, false},
		{"risk threshold met", "result.risk_score >= 0.5", condEvalCtx{riskScore: 0.6}, true},
		{"risk threshold not met", "result.risk_score >= 0.5", condEvalCtx{riskScore: 0.4}, false},
		{"malformed risk threshold is false", "result.risk_score >= abc", condEvalCtx{riskScore: 0.9}, false},
		{"options key exists", "ctx.options.reference_path exists", condEvalCtx{options: map[string]interface{}{"reference_path": "/x"}}, true},
		{"options key missing", "ctx.options.reference_path exists", condEvalCtx{options: map[string]interface{}{}}, false},
		{"options equality match", `ctx.options.mode == "fast"`, condEvalCtx{options: map[string]interface{}{"mode": "fast"}}, true},
		{"options equality mismatch", `ctx.options.mode == "fast"`, condEvalCtx{options: map[string]interface{}{"mode": "slow"}}, false},
		{"and combinator", "result.success and result.risk_score >= 0.5", condEvalCtx{hasResult: true, success: true, riskScore: 0.9}, true},
		{"and combinator short-circuits false", "result.success and result.risk_score >= 0.5", condEvalCtx{hasResult: true, success: false, riskScore: 0.9}, false},
		{"or combinator", "result.success or result.risk_score >= 0.5", condEvalCtx{hasResult: true, success: false, riskScore: 0.9}, true},
		{"unknown predicate is false", "ctx.nonsense", condEvalCtx{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := evalConditionExpr(tc.expr, tc.ctx)
			if got != tc.want {
				t.Errorf("evalConditionExpr(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}
