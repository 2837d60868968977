package activity

import (
	"strings"
	"time"
)

// Verbs emitted for views.
const (
	VerbViewCreated   = "view.created"
	VerbViewMounted   = "view.mounted"
	VerbViewUnmounted = "view.unmounted"
	VerbViewEvicted   = "view.evicted"
)

// ObjectTypeView is the object type of every view event.
const ObjectTypeView = "stable.view"

// ViewEventInput carries the fields shared by view lifecycle events.
type ViewEventInput struct {
	ViewID     string
	ActorID    string
	TenantID   string
	Channel    string
	// FactoryKey is the formatted key of a factory-owned view.
	FactoryKey string
	Keys       []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildViewCreatedEvent describes the first generation installed on a view.
func BuildViewCreatedEvent(input ViewEventInput) Event {
	return buildViewEvent(VerbViewCreated, input)
}

// BuildViewMountedEvent describes a host instance committing its first render.
func BuildViewMountedEvent(input ViewEventInput) Event {
	return buildViewEvent(VerbViewMounted, input)
}

// BuildViewUnmountedEvent describes a host instance being discarded.
func BuildViewUnmountedEvent(input ViewEventInput) Event {
	return buildViewEvent(VerbViewUnmounted, input)
}

// BuildViewEvictedEvent describes a factory dropping one of its views.
func BuildViewEvictedEvent(input ViewEventInput) Event {
	return buildViewEvent(VerbViewEvicted, input)
}

func buildViewEvent(verb string, input ViewEventInput) Event {
	metadata := cloneMetadata(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if keys := keyList(input.Keys); keys != nil {
		set("keys", keys)
	}
	if key := strings.TrimSpace(input.FactoryKey); key != "" {
		set("factory_key", key)
	}

	objectID := strings.TrimSpace(input.ViewID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.FactoryKey)
	}
	if objectID == "" {
		objectID = ObjectTypeView
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeView,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
