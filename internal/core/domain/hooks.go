package domain

import "context"

// HookPoint names a fixed point in the document lifecycle at which externally
// supplied hooks run.
type HookPoint string

const (
	BeforeSave   HookPoint = "beforeSave"
	AfterSave    HookPoint = "afterSave"
	BeforeSubmit HookPoint = "beforeSubmit"
	AfterSubmit  HookPoint = "afterSubmit"
	BeforeCancel HookPoint = "beforeCancel"
	AfterCancel  HookPoint = "afterCancel"
	ValidateHook HookPoint = "validate"
)

// Hook is a named callable capability attached to a schema. A hook returning
// an error aborts the enclosing transition with no partial effect.
type Hook func(ctx context.Context, doc *Document) error

// HookSet holds the hooks registered for one schema, keyed by lifecycle point.
type HookSet map[HookPoint][]Hook

// Add appends a hook at the given point.
func (h HookSet) Add(point HookPoint, hook Hook) {
	h[point] = append(h[point], hook)
}

// Run invokes every hook registered at the given point, in registration
// order, stopping at the first error.
func (h HookSet) Run(ctx context.Context, point HookPoint, doc *Document) error {
	for _, hook := range h[point] {
		if err := hook(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}
