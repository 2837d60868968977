package stable

import (
	"context"

	"github.com/goliatone/go-stable/pkg/activity"
)

// WithActivityHooks forwards view lifecycle events to hooks. Nil entries are
// dropped and the slice is copied, so later changes by the caller have no
// effect.
func WithActivityHooks(hooks ...activity.ActivityHook) Option {
	kept := cloneActivityHooks(hooks)
	return func(cfg *viewConfig) {
		cfg.activityHooks = append(cfg.activityHooks, kept...)
	}
}

// ActivityHooks returns a copy of the hooks attached to the view.
func (v *View) ActivityHooks() activity.Hooks {
	if v == nil {
		return nil
	}
	return cloneActivityHooks(v.cfg.activityHooks)
}

// Notify sends event through the view's hooks, stamping the view ID and
// clock when the event leaves them empty. Host adapters use it for mount
// and unmount events.
func (v *View) Notify(ctx context.Context, event activity.Event) error {
	if !v.emitter.Enabled() {
		return nil
	}
	if event.ObjectID == "" {
		event.ObjectID = v.id
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = v.cfg.now()
	}
	return v.emitter.Emit(ctx, event)
}

func cloneActivityHooks(hooks []activity.ActivityHook) activity.Hooks {
	var kept activity.Hooks
	for _, hook := range hooks {
		if hook != nil {
			kept = append(kept, hook)
		}
	}
	return kept
}
