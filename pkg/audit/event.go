package audit

import (
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EventType classifies what happened. Data events reference a resource;
// auth events usually do not.
type EventType string

const (
	EventCreate           EventType = "CREATE"
	EventRead             EventType = "READ"
	EventUpdate           EventType = "UPDATE"
	EventDelete           EventType = "DELETE"
	EventHardDelete       EventType = "HARD_DELETE"
	EventLogin            EventType = "LOGIN"
	EventLogout           EventType = "LOGOUT"
	EventAuthFailure      EventType = "AUTH_FAILURE"
	EventPermissionDenied EventType = "PERMISSION_DENIED"
	EventDataExport       EventType = "DATA_EXPORT"
	EventSystemChange     EventType = "SYSTEM_CHANGE"
)

// Change records one field transition inside an update event. From is unset
// for fields that appeared, To is unset for fields that were removed.
type Change struct {
	From any `bson:"from,omitempty" json:"from,omitempty"`
	To   any `bson:"to,omitempty" json:"to,omitempty"`
}

// Event is a single audit trail entry.
type Event struct {
	ID          string            `bson:"_id,omitempty" json:"id"`
	Type        EventType         `bson:"event_type" json:"event_type"`
	TenantID    string            `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	UserID      string            `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Resource    string            `bson:"resource,omitempty" json:"resource,omitempty"`
	ResourceID  string            `bson:"resource_id,omitempty" json:"resource_id,omitempty"`
	Action      string            `bson:"action,omitempty" json:"action,omitempty"`
	Changes     map[string]Change `bson:"changes,omitempty" json:"changes,omitempty"`
	Metadata    map[string]any    `bson:"metadata,omitempty" json:"metadata,omitempty"`
	RequestID   string            `bson:"request_id,omitempty" json:"request_id,omitempty"`
	IP          string            `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent   string            `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedDate time.Time         `bson:"created_date" json:"created_date"`
}

// Validate checks the event carries the minimum required fields.
func (e *Event) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("%w: event type is required", ErrEventValidation)
	}
	return nil
}

// EventOption customizes an event as it is recorded.
type EventOption func(*Event)

// WithMetadata attaches one metadata entry to the event.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithAction names the attempted operation, used by denial and auth events.
func WithAction(action string) EventOption {
	return func(e *Event) { e.Action = action }
}

// WithResource sets the resource reference on an event that is not tied to a
// repository operation.
func WithResource(resource, resourceID string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = resourceID
	}
}

// WithChanges attaches a precomputed change set.
func WithChanges(changes map[string]Change) EventOption {
	return func(e *Event) { e.Changes = changes }
}

// Bookkeeping fields every update touches; recording them would bury the
// meaningful changes in noise.
var volatileFields = map[string]struct{}{
	"last_updated":    {},
	"last_updated_by": {},
}

// Diff computes the field-level changes between two document states. Both
// values are flattened through their storage representation so the recorded
// keys match what is actually persisted. A nil before treats every field as
// newly set; identical states return nil.
func Diff(before, after any) map[string]Change {
	b := flatten(before)
	a := flatten(after)

	changes := make(map[string]Change)
	for key, av := range a {
		if _, skip := volatileFields[key]; skip {
			continue
		}
		bv, existed := b[key]
		if !existed {
			changes[key] = Change{To: av}
			continue
		}
		if !reflect.DeepEqual(bv, av) {
			changes[key] = Change{From: bv, To: av}
		}
	}
	for key, bv := range b {
		if _, skip := volatileFields[key]; skip {
			continue
		}
		if _, still := a[key]; !still {
			changes[key] = Change{From: bv}
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}

func flatten(v any) bson.M {
	if v == nil {
		return bson.M{}
	}
	if m, ok := v.(bson.M); ok {
		return m
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return bson.M{}
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return bson.M{}
	}
	return m
}
