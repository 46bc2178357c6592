package services

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/cel-go/cel"

	"github.com/docuflow/docuflow/internal/core/domain"
	"github.com/docuflow/docuflow/internal/utils/formula"
)

var (
	ErrDuplicateSchema = errors.New("schema already registered")
	ErrUnknownSchema   = errors.New("schema not registered")
	ErrSchemaFrozen    = errors.New("schema registry is frozen")
	ErrCyclicFormula   = errors.New("cyclic formula dependency")
)

// RegisteredSchema is a schema plus everything the registry precomputes at
// registration time: the formula evaluation order, compiled constraint and
// condition programs, and the externally supplied hook set.
type RegisteredSchema struct {
	Schema domain.Schema

	// EvalOrder lists the computed fields in topological dependency order,
	// ties broken by field declaration order.
	EvalOrder []string

	hooksMu     sync.RWMutex
	hooks       domain.HookSet
	constraints map[string]cel.Program
	conditions  map[int]cel.Program
}

// Hooks returns the schema's current hook set. The returned set is never
// mutated after publication; AddHook replaces it wholesale.
func (rs *RegisteredSchema) Hooks() domain.HookSet {
	rs.hooksMu.RLock()
	defer rs.hooksMu.RUnlock()
	return rs.hooks
}

// Constraint returns the compiled constraint program for a field, if any.
func (rs *RegisteredSchema) Constraint(fieldName string) (cel.Program, bool) {
	prg, ok := rs.constraints[fieldName]
	return prg, ok
}

// Condition returns the compiled condition program for a posting rule index,
// if any.
func (rs *RegisteredSchema) Condition(ruleIndex int) (cel.Program, bool) {
	prg, ok := rs.conditions[ruleIndex]
	return prg, ok
}

// SchemaRegistry holds the declarative schema definitions for the process.
// Registration happens once at startup; after Freeze, lookups take no lock.
type SchemaRegistry struct {
	mu      sync.RWMutex
	frozen  atomic.Bool
	env     *cel.Env
	entries map[string]*RegisteredSchema
}

// NewSchemaRegistry creates an empty registry with a shared CEL environment
// for constraint and condition expressions. Expressions see the document's
// fields as the dynamic map "doc" and, for field constraints, the field's
// own value as "value".
func NewSchemaRegistry() (*SchemaRegistry, error) {
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.DynType),
		cel.Variable("value", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &SchemaRegistry{
		env:     env,
		entries: make(map[string]*RegisteredSchema),
	}, nil
}

// Register validates and stores a schema. Formula cycles, unknown formula
// references and malformed constraint expressions are rejected here, at
// startup, never at evaluation time.
func (r *SchemaRegistry) Register(schema domain.Schema) error {
	if r.frozen.Load() {
		return fmt.Errorf("%w: cannot register schema %s", ErrSchemaFrozen, schema.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[schema.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSchema, schema.Name)
	}

	evalOrder, err := computeEvalOrder(schema)
	if err != nil {
		return err
	}

	constraints := make(map[string]cel.Program)
	for _, field := range schema.Fields {
		if field.Constraint == "" {
			continue
		}
		prg, err := r.compile(field.Constraint)
		if err != nil {
			return fmt.Errorf("schema %s field %s constraint: %w", schema.Name, field.Name, err)
		}
		constraints[field.Name] = prg
	}

	conditions := make(map[int]cel.Program)
	for i, rule := range schema.PostingRules {
		if rule.AmountExpr == "" {
			return fmt.Errorf("schema %s posting rule %d: missing amount expression", schema.Name, i)
		}
		if err := formula.Validate(rule.AmountExpr); err != nil {
			return fmt.Errorf("schema %s posting rule %d amount: %w", schema.Name, i, err)
		}
		if rule.Condition == "" {
			continue
		}
		prg, err := r.compile(rule.Condition)
		if err != nil {
			return fmt.Errorf("schema %s posting rule %d condition: %w", schema.Name, i, err)
		}
		conditions[i] = prg
	}

	r.entries[schema.Name] = &RegisteredSchema{
		Schema:      schema,
		EvalOrder:   evalOrder,
		hooks:       make(domain.HookSet),
		constraints: constraints,
		conditions:  conditions,
	}
	return nil
}

// Freeze ends the registration phase. Subsequent Register calls fail with
// ErrSchemaFrozen and lookups no longer take the lock.
func (r *SchemaRegistry) Freeze() {
	r.frozen.Store(true)
}

// Get returns the registered schema with the given name.
func (r *SchemaRegistry) Get(name string) (*RegisteredSchema, error) {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return entry, nil
}

// AddHook attaches a lifecycle hook to a registered schema. Hooks are code
// capabilities, not field definitions, so they may be registered after
// Freeze (typically still at startup). The hook set is replaced
// copy-on-write so hook sets already handed to in-flight requests stay
// untouched.
func (r *SchemaRegistry) AddHook(schemaName string, point domain.HookPoint, hook domain.Hook) error {
	entry, err := r.Get(schemaName)
	if err != nil {
		return err
	}
	entry.hooksMu.Lock()
	defer entry.hooksMu.Unlock()

	next := make(domain.HookSet, len(entry.hooks)+1)
	for p, hs := range entry.hooks {
		next[p] = append([]domain.Hook(nil), hs...)
	}
	next.Add(point, hook)
	entry.hooks = next
	return nil
}

func (r *SchemaRegistry) compile(expr string) (cel.Program, error) {
	ast, issues := r.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	prg, err := r.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	return prg, nil
}

// computeEvalOrder topologically sorts the computed fields by their declared
// formula dependencies. It also checks that every referenced field exists.
func computeEvalOrder(schema domain.Schema) ([]string, error) {
	known := make(map[string]domain.Field, len(schema.Fields))
	for _, f := range schema.Fields {
		known[f.Name] = f
	}

	deps := make(map[string][]string)
	for _, f := range schema.Fields {
		if f.Formula == "" {
			continue
		}
		// Formulas produce exact decimals, so only numeric fields may
		// carry one.
		if f.Type != domain.TypeNumeric && f.Type != domain.TypeCurrency {
			return nil, fmt.Errorf("schema %s field %s: formula declared on non-numeric field type %s", schema.Name, f.Name, f.Type)
		}
		refs, err := formula.Dependencies(f.Formula)
		if err != nil {
			return nil, fmt.Errorf("schema %s field %s formula: %w", schema.Name, f.Name, err)
		}
		for _, ref := range refs {
			dep, ok := known[ref]
			if !ok {
				return nil, fmt.Errorf("schema %s field %s formula references unknown field %q", schema.Name, f.Name, ref)
			}
			// Only edges between computed fields order evaluation;
			// plain fields are inputs.
			if dep.Formula != "" {
				deps[f.Name] = append(deps[f.Name], ref)
			}
		}
		if _, ok := deps[f.Name]; !ok {
			deps[f.Name] = nil
		}
	}

	// Repeatedly take the first declared field whose dependencies are all
	// resolved, so ties break by declaration order.
	order := make([]string, 0, len(deps))
	resolved := make(map[string]bool, len(deps))
	for len(order) < len(deps) {
		progressed := false
		for _, f := range schema.Fields {
			if f.Formula == "" || resolved[f.Name] {
				continue
			}
			ready := true
			for _, ref := range deps[f.Name] {
				if !resolved[ref] {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, f.Name)
				resolved[f.Name] = true
				progressed = true
			}
		}
		if !progressed {
			return nil, fmt.Errorf("%w: schema %s", ErrCyclicFormula, schema.Name)
		}
	}
	return order, nil
}
