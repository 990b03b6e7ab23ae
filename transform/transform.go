package transform

import "fmt"

// Transform is one pipeline stage. Apply mutates the record in place; the
// first error aborts the chain.
type Transform interface {
	Name() string
	Apply(r *Record) error
}

// Observer inspects the record after a stage completes. Observers are
// read-only by contract and have no effect on the pipeline data.
type Observer func(stage string, r *Record)

// Compose applies transforms in fixed order.
type Compose struct {
	Transforms []Transform
}

// NewCompose builds a composition over the given stages.
func NewCompose(ts ...Transform) *Compose {
	return &Compose{Transforms: ts}
}

// Apply runs the chain, fail-fast.
func (c *Compose) Apply(r *Record) error {
	return c.ApplyWithObserver(r, nil)
}

// ApplyWithObserver runs the chain, invoking obs after every stage. Display
// concerns hook in here so compute never depends on them.
func (c *Compose) ApplyWithObserver(r *Record, obs Observer) error {
	for _, t := range c.Transforms {
		if err := t.Apply(r); err != nil {
			return fmt.Errorf("%s: %w", t.Name(), err)
		}
		if obs != nil {
			obs(t.Name(), r)
		}
	}
	return nil
}
