// Package policy evaluates rego rules that gate work session writes.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.worksession_policy.result"),
		rego.Module("worksession_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// LoadPolicy returns the content of the rego file at path, or
// DefaultPolicy when path is empty.
func LoadPolicy(path string) (string, error) {
	if path == "" {
		return DefaultPolicy, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read policy file: %w", err)
	}
	return string(b), nil
}

// Input is the document a policy decides on.
type Input struct {
	Action      domain.PolicyAction `json:"action"`
	AccountID   int64               `json:"account_id"`
	MissionID   *int64              `json:"mission_id"`
	StartTimeMs int64               `json:"start_time_ms"`
	EndTimeMs   *int64              `json:"end_time_ms"`
	DurationMs  *int64              `json:"duration_ms"`
	PauseCount  int                 `json:"pause_count"`
}

func (in Input) toMap() map[string]interface{} {
	m := map[string]interface{}{
		"action":        string(in.Action),
		"account_id":    in.AccountID,
		"start_time_ms": in.StartTimeMs,
		"pause_count":   in.PauseCount,
	}
	if in.MissionID != nil {
		m["mission_id"] = *in.MissionID
	}
	if in.EndTimeMs != nil {
		m["end_time_ms"] = *in.EndTimeMs
	}
	if in.DurationMs != nil {
		m["duration_ms"] = *in.DurationMs
	}
	return m
}

// Evaluate runs the policy against input. A policy producing no result
// allows the operation.
func (e *Engine) Evaluate(ctx context.Context, input Input) (domain.PolicyDecision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input.toMap()))
	if err != nil {
		return domain.PolicyDecision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.PolicyDecision{Decision: "allow", Reason: "default"}, nil
	}

	// The rule may return a bare decision string or {decision, reason}.
	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return domain.PolicyDecision{Decision: val}, nil
	case map[string]interface{}:
		d := domain.PolicyDecision{Decision: "allow"}
		if s, ok := val["decision"].(string); ok && s != "" {
			d.Decision = s
		}
		if s, ok := val["reason"].(string); ok {
			d.Reason = s
		}
		return d, nil
	default:
		return domain.PolicyDecision{Decision: "allow", Reason: "unexpected return type"}, nil
	}
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package worksession_policy

default decision = "allow"
default reason = ""

invalid_interval {
	input.action == "create_manual"
	input.end_time_ms < input.start_time_ms
}

# Block manual sessions that end before they start
decision = "block" {
	invalid_interval
}

reason = "end_time is before start_time" {
	invalid_interval
}

result = {"decision": decision, "reason": reason}
`
