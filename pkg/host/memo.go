package host

import (
	"maps"

	stable "github.com/goliatone/go-stable"
	"github.com/goliatone/go-stable/compare"
)

// Memoized wraps a render function. It keeps a view of the current props and
// only calls render again when the raw props change shallowly.
type Memoized[R any] struct {
	render  func(*stable.View) R
	policy  stable.Config
	view    *stable.View
	last    stable.Record
	result  R
	primed  bool
	renders int
}

// Memo wraps render so it receives a view of the props instead of the props
// themselves.
func Memo[R any](render func(*stable.View) R, policy stable.Config, opts ...stable.Option) *Memoized[R] {
	return &Memoized[R]{
		render: render,
		policy: policy,
		view:   stable.New(opts...),
	}
}

// Render updates the view with props and returns the render result. The
// previous result is returned while props are shallow-equal to the last
// ones. Function props never force a new render: the view's handles already
// call the latest implementation.
func (m *Memoized[R]) Render(props stable.Record) (R, error) {
	if err := m.view.Update(props, m.policy); err != nil {
		var zero R
		return zero, err
	}
	if m.primed && compare.Shallow(m.last, props, sameProp) {
		return m.result, nil
	}
	m.last = maps.Clone(props)
	m.result = m.render(m.view)
	m.primed = true
	m.renders++
	return m.result, nil
}

// View returns the view passed to render.
func (m *Memoized[R]) View() *stable.View {
	return m.view
}

// Renders counts the calls that reached render.
func (m *Memoized[R]) Renders() int {
	return m.renders
}

func sameProp(a, b any) bool {
	if compare.IsCallable(a) && compare.IsCallable(b) {
		return true
	}
	return compare.Equal(a, b)
}
