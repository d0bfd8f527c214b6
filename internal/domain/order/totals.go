package order

import (
	"context"
	"fmt"
	"slices"
)

// Module is a single order-total component. Modules run once per order build
// in ascending SortOrder.
type Module interface {
	Code() string
	SortOrder() int
	Process(ctx context.Context, b *Build) error
}

// Build carries one order-total computation: the order being adjusted, the
// lines emitted so far and the set of modules that have already finalized.
type Build struct {
	Order *Order

	lines     []TotalLine
	finalized map[string]bool
}

// Finalized reports whether the module with the given code has already run
// in this build. Modules use it to decide whether figures another module
// displays still need adjusting.
func (b *Build) Finalized(code string) bool {
	return b.finalized[code]
}

// Add appends a line to the breakdown.
func (b *Build) Add(line TotalLine) {
	b.lines = append(b.lines, line)
}

// Lines returns the lines emitted so far.
func (b *Build) Lines() []TotalLine {
	return b.lines
}

// Pipeline runs order-total modules in sort order.
type Pipeline struct {
	modules []Module
}

// NewPipeline sorts modules by SortOrder, keeping registration order for ties.
// Duplicate codes are rejected.
func NewPipeline(modules ...Module) (*Pipeline, error) {
	seen := make(map[string]bool, len(modules))
	for _, m := range modules {
		if seen[m.Code()] {
			return nil, fmt.Errorf("duplicate order-total module %q", m.Code())
		}
		seen[m.Code()] = true
	}

	sorted := slices.Clone(modules)
	slices.SortStableFunc(sorted, func(a, b Module) int {
		return a.SortOrder() - b.SortOrder()
	})
	return &Pipeline{modules: sorted}, nil
}

// Modules returns the modules in execution order.
func (p *Pipeline) Modules() []Module {
	return p.modules
}

// Run processes o through every module exactly once and returns the
// resulting breakdown. The order is mutated in place; callers must pass a
// fresh snapshot for every build.
func (p *Pipeline) Run(ctx context.Context, o *Order) ([]TotalLine, error) {
	o.EnsureTaxGroups()
	b := &Build{
		Order:     o,
		finalized: make(map[string]bool, len(p.modules)),
	}
	for _, m := range p.modules {
		if err := m.Process(ctx, b); err != nil {
			return nil, fmt.Errorf("order total %s: %w", m.Code(), err)
		}
		b.finalized[m.Code()] = true
	}
	return b.lines, nil
}
