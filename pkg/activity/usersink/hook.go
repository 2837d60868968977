// Package usersink forwards view lifecycle events to a go-users activity
// sink.
package usersink

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-stable/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook is an activity.ActivityHook writing ActivityRecords to Sink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Now stamps records whose event carries no timestamp.
	Now func() time.Time
}

var _ activity.ActivityHook = Hook{}

// Notify maps event to an ActivityRecord. Actor and tenant IDs that are not
// UUIDs are recorded as uuid.Nil and kept verbatim in the record data.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := maps.Clone(normalized.Metadata)
	annotate := func(key, value string) {
		if data == nil {
			data = map[string]any{}
		}
		data[key] = value
	}
	actorID, ok := parseUUID(normalized.ActorID)
	if !ok && normalized.ActorID != "" {
		annotate("actor_ref", normalized.ActorID)
	}
	tenantID, ok := parseUUID(normalized.TenantID)
	if !ok && normalized.TenantID != "" {
		annotate("tenant_ref", normalized.TenantID)
	}

	record := usertypes.ActivityRecord{
		ActorID:    actorID,
		UserID:     actorID,
		TenantID:   tenantID,
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: normalized.OccurredAt,
	}
	if event.OccurredAt.IsZero() && h.Now != nil {
		record.OccurredAt = h.Now()
	}
	return h.Sink.Log(ctx, record)
}

func parseUUID(input string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
