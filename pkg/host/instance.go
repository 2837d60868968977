package host

import (
	"context"
	"fmt"

	stable "github.com/goliatone/go-stable"
	"github.com/goliatone/go-stable/pkg/activity"
)

// Default keys holding lifecycle callbacks.
const (
	DefaultMountKey   = "onMount"
	DefaultUnmountKey = "onUnmount"
)

// InstanceOption configures an Instance.
type InstanceOption func(*Instance)

// WithLifecycleKeys changes the keys read for the mount and unmount
// callbacks. An empty key disables that callback.
func WithLifecycleKeys(mount, unmount string) InstanceOption {
	return func(i *Instance) {
		i.mountKey = mount
		i.unmountKey = unmount
	}
}

// WithMergeRender makes Render merge props into the previous generation.
func WithMergeRender() InstanceOption {
	return func(i *Instance) {
		i.merge = true
	}
}

// WithViewOptions configures the instance's view.
func WithViewOptions(opts ...stable.Option) InstanceOption {
	return func(i *Instance) {
		i.viewOptions = append(i.viewOptions, opts...)
	}
}

// Instance drives one view through a component lifecycle. Render installs
// the props of each pass before anything reads the view. Commit runs the
// mount callback once after the first successful render and Discard runs the
// unmount callback once. Callbacks are read live from the backing record.
type Instance struct {
	policy      stable.Config
	viewOptions []stable.Option
	merge       bool
	mountKey    string
	unmountKey  string

	view      *stable.View
	rendered  bool
	mounted   bool
	discarded bool
}

// NewInstance builds an instance whose view uses policy for every render.
func NewInstance(policy stable.Config, opts ...InstanceOption) *Instance {
	i := &Instance{
		policy:     policy,
		mountKey:   DefaultMountKey,
		unmountKey: DefaultUnmountKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	i.view = stable.New(i.viewOptions...)
	return i
}

// View returns the instance's view. Its identity never changes.
func (i *Instance) View() *stable.View {
	return i.view
}

// Render installs props as the current generation and returns the view.
func (i *Instance) Render(props stable.Record) (*stable.View, error) {
	if i.discarded {
		return nil, fmt.Errorf("host: render after discard of view %s", i.view.ID())
	}
	var err error
	if i.merge {
		err = i.view.Merge(props, i.policy)
	} else {
		err = i.view.Update(props, i.policy)
	}
	if err != nil {
		return nil, err
	}
	i.rendered = true
	return i.view, nil
}

// Commit marks the latest render as committed. The first commit after a
// successful render runs the mount callback; later commits do nothing.
func (i *Instance) Commit(ctx context.Context) error {
	if !i.rendered || i.mounted || i.discarded {
		return nil
	}
	i.mounted = true
	if err := i.fire(i.mountKey); err != nil {
		return err
	}
	return i.view.Notify(ctx, activity.BuildViewMountedEvent(activity.ViewEventInput{
		ViewID: i.view.ID(),
		Keys:   i.view.Keys(),
	}))
}

// Discard permanently retires the instance. The unmount callback runs once,
// and only for an instance that was mounted.
func (i *Instance) Discard(ctx context.Context) error {
	if i.discarded {
		return nil
	}
	i.discarded = true
	if !i.mounted {
		return nil
	}
	if err := i.fire(i.unmountKey); err != nil {
		return err
	}
	return i.view.Notify(ctx, activity.BuildViewUnmountedEvent(activity.ViewEventInput{
		ViewID: i.view.ID(),
	}))
}

// Mounted reports whether the mount callback stage has run.
func (i *Instance) Mounted() bool {
	return i.mounted
}

// Discarded reports whether Discard has been called.
func (i *Instance) Discarded() bool {
	return i.discarded
}

func (i *Instance) fire(key string) error {
	if key == "" {
		return nil
	}
	callback := i.view.Live(key)
	if callback == nil {
		return nil
	}
	if _, err := stable.Invoke(callback); err != nil {
		return fmt.Errorf("host: %s: %w", key, err)
	}
	return nil
}
