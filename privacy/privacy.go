package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/sqlorm"
)

// Policy decision sentinel errors. Use errors.Is to check for them:
//
//	if errors.Is(err, privacy.Deny) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	Allow = errors.New("sqlorm/privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	Deny = errors.New("sqlorm/privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule.
	Skip = errors.New("sqlorm/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Op is the write operation of a record.
type Op uint

// Write operations.
const (
	OpCreate Op = 1 << iota
	OpUpdate
)

// Is reports whether o matches any of the operations of op.
func (o Op) Is(op Op) bool { return o&op != 0 }

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	default:
		return fmt.Sprintf("op(%d)", uint(o))
	}
}

// OpOf returns the operation Save runs for rec.
func OpOf(rec sqlorm.Record) Op {
	if rec.Exists() {
		return OpUpdate
	}
	return OpCreate
}

type (
	// QueryRule decides whether a query is allowed and may restrict it.
	QueryRule interface {
		EvalQuery(context.Context, *sqlorm.Query) error
	}

	// QueryPolicy combines multiple query rules into a single policy.
	QueryPolicy []QueryRule

	// WriteRule decides whether a record may be written.
	WriteRule interface {
		EvalWrite(context.Context, sqlorm.Record) error
	}

	// WritePolicy combines multiple write rules into a single policy.
	WritePolicy []WriteRule

	// QueryWriteRule groups query and write rules.
	QueryWriteRule interface {
		QueryRule
		WriteRule
	}
)

// QueryRuleFunc is an adapter which allows the use of ordinary functions
// as query rules.
type QueryRuleFunc func(context.Context, *sqlorm.Query) error

// EvalQuery returns f(ctx, q).
func (f QueryRuleFunc) EvalQuery(ctx context.Context, q *sqlorm.Query) error {
	return f(ctx, q)
}

// WriteRuleFunc is an adapter which allows the use of ordinary functions
// as write rules.
type WriteRuleFunc func(context.Context, sqlorm.Record) error

// EvalWrite returns f(ctx, rec).
func (f WriteRuleFunc) EvalWrite(ctx context.Context, rec sqlorm.Record) error {
	return f(ctx, rec)
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() QueryWriteRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() QueryWriteRule {
	return fixedDecision{Deny}
}

// ContextQueryWriteRule creates a rule from a context evaluation function.
// Returning nil is equivalent to returning Skip.
func ContextQueryWriteRule(eval func(context.Context) error) QueryWriteRule {
	return contextDecision{eval}
}

// OnOperation evaluates the given rule only on the given write operations.
func OnOperation(rule WriteRule, op Op) WriteRule {
	return WriteRuleFunc(func(ctx context.Context, rec sqlorm.Record) error {
		if OpOf(rec).Is(op) {
			return rule.EvalWrite(ctx, rec)
		}
		return Skip
	})
}

// OnSource evaluates the given rule only on the records of the given
// sources.
func OnSource(rule WriteRule, sources ...string) WriteRule {
	return WriteRuleFunc(func(ctx context.Context, rec sqlorm.Record) error {
		for _, s := range sources {
			if rec.Schema().Source() == s {
				return rule.EvalWrite(ctx, rec)
			}
		}
		return Skip
	})
}

// DenyOperationRule returns a rule denying the given write operations.
func DenyOperationRule(op Op) WriteRule {
	rule := WriteRuleFunc(func(_ context.Context, rec sqlorm.Record) error {
		return Denyf("sqlorm/privacy: operation %s is not allowed", OpOf(rec))
	})
	return OnOperation(rule, op)
}

// AllowOperationRule returns a rule allowing the given write operations.
func AllowOperationRule(op Op) WriteRule {
	rule := WriteRuleFunc(func(context.Context, sqlorm.Record) error {
		return Allow
	})
	return OnOperation(rule, op)
}

// Policy groups query and write policies.
type Policy struct {
	Query QueryPolicy
	Write WritePolicy
}

// EvalQuery forwards the evaluation to the query policy.
func (p Policy) EvalQuery(ctx context.Context, q *sqlorm.Query) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	return allowed(p.Query.EvalQuery(ctx, q))
}

// EvalWrite forwards the evaluation to the write policy.
func (p Policy) EvalWrite(ctx context.Context, rec sqlorm.Record) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	return allowed(p.Write.EvalWrite(ctx, rec))
}

// Validator returns a schema validator evaluating the write policy. A
// denied record is reported as a *sqlorm.ValidationError named after its
// source.
func (p Policy) Validator() sqlorm.Validator {
	return func(ctx context.Context, rec sqlorm.Record) error {
		err := p.EvalWrite(ctx, rec)
		if err != nil && errors.Is(err, Deny) {
			return sqlorm.NewValidationError(rec.Schema().Source(), err)
		}
		return err
	}
}

// Restrict returns a query of s restricted by the query policy. A denied
// query is reported as an error wrapping Deny.
func (p Policy) Restrict(ctx context.Context, s *sqlorm.Schema, opts ...sqlorm.QueryOption) (*sqlorm.Query, error) {
	q, err := s.Query(opts...)
	if err != nil {
		return nil, err
	}
	if err := p.EvalQuery(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Policies combines multiple policies into a single policy. An Allow
// decision of one of them stops the evaluation with a nil error.
type Policies []Policy

// EvalQuery evaluates the query policies.
func (policies Policies) EvalQuery(ctx context.Context, q *sqlorm.Query) error {
	return policies.eval(ctx, func(p Policy) error {
		return p.Query.EvalQuery(ctx, q)
	})
}

// EvalWrite evaluates the write policies.
func (policies Policies) EvalWrite(ctx context.Context, rec sqlorm.Record) error {
	return policies.eval(ctx, func(p Policy) error {
		return p.Write.EvalWrite(ctx, rec)
	})
}

func (policies Policies) eval(ctx context.Context, eval func(Policy) error) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, policy := range policies {
		switch decision := eval(policy); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// EvalQuery evaluates a query against a query policy.
func (policies QueryPolicy) EvalQuery(ctx context.Context, q *sqlorm.Query) error {
	for _, policy := range policies {
		switch decision := policy.EvalQuery(ctx, q); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

// EvalWrite evaluates a record against a write policy.
func (policies WritePolicy) EvalWrite(ctx context.Context, rec sqlorm.Record) error {
	for _, policy := range policies {
		switch decision := policy.EvalWrite(ctx, rec); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

// allowed turns an Allow decision into nil.
func allowed(decision error) error {
	if decision != nil && errors.Is(decision, Allow) {
		return nil
	}
	return decision
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attached to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalQuery(context.Context, *sqlorm.Query) error {
	return f.decision
}

func (f fixedDecision) EvalWrite(context.Context, sqlorm.Record) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalQuery(ctx context.Context, _ *sqlorm.Query) error {
	return c.eval(ctx)
}

func (c contextDecision) EvalWrite(ctx context.Context, _ sqlorm.Record) error {
	return c.eval(ctx)
}
