package plugin

import (
	"context"
	"errors"
	"sync"
)

// memDoc is an in-memory Document.
type memDoc struct {
	mu      sync.Mutex
	content string
	sets    int
}

func (d *memDoc) Content() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content
}

func (d *memDoc) Text() string {
	return d.Content()
}

func (d *memDoc) SetContent(_ context.Context, html string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = html
	d.sets++
	return nil
}

// fakeUnit runs Go closures in place of script code.
type fakeUnit struct {
	activate   func(*Context) error
	deactivate func() error
	closed     *int
}

func (u *fakeUnit) Activate(ctx *Context) error {
	if u.activate == nil {
		return nil
	}
	return u.activate(ctx)
}

func (u *fakeUnit) Deactivate() error {
	if u.deactivate == nil {
		return nil
	}
	return u.deactivate()
}

func (u *fakeUnit) Close() error {
	if u.closed != nil {
		*u.closed++
	}
	return nil
}

// fakeCompiler maps source strings to prepared units.
type fakeCompiler struct {
	units    map[string]*fakeUnit
	compiled int
}

func newFakeCompiler() *fakeCompiler {
	return &fakeCompiler{units: make(map[string]*fakeUnit)}
}

func (c *fakeCompiler) Runtime() string { return DefaultRuntime }

func (c *fakeCompiler) Compile(_ ID, source string) (Unit, error) {
	c.compiled++
	u, ok := c.units[source]
	if !ok {
		return nil, errors.New("syntax error")
	}
	return u, nil
}

type recorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *recorder) Report(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) all() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
