package activitymap

import (
	"strings"
	"time"

	remito "github.com/goliatone/go-remito"
)

const (
	// MetadataKeyImpersonatorID stores the administrator acting on behalf of the actor.
	MetadataKeyImpersonatorID = "impersonator_id"
	// MetadataKeyDescription stores the human readable description of the event.
	MetadataKeyDescription = "description"
)

const (
	defaultChannel = "remito"
	defaultActorID = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ID         string         `json:"id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	TenantID   string         `json:"tenant_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	actorFallback    string
	objectIDResolver func(remito.ActivityEvent) (string, string)
	now              func() time.Time
}

// Normalize converts a remito.ActivityEvent into a generic normalized shape.
func Normalize(event remito.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.ActorID),
		strings.TrimSpace(options.actorFallback),
	)

	objectType, objectID := resolveObject(event, options.objectIDResolver)
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ID:         event.ID,
		ActorID:    actorID,
		Verb:       string(event.Action),
		ObjectType: objectType,
		ObjectID:   objectID,
		TenantID:   strings.TrimSpace(event.TenantID),
		Channel:    strings.TrimSpace(options.channel),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// NormalizeEntry converts a persisted audit entry.
func NormalizeEntry(entry *remito.AuditEntry, opts ...Option) Normalized {
	if entry == nil {
		return Normalize(remito.ActivityEvent{}, opts...)
	}
	return Normalize(remito.ActivityEvent{
		ID:             entry.ID,
		Action:         remito.ActivityAction(entry.Action),
		ActorID:        entry.UserID,
		TenantID:       entry.TenantID,
		ImpersonatorID: entry.ImpersonatorID,
		Description:    entry.Description,
		Metadata:       entry.Metadata,
		OccurredAt:     entry.CreatedAt,
	}, opts...)
}

// NormalizeEntries converts a page of audit entries.
func NormalizeEntries(entries []*remito.AuditEntry, opts ...Option) []Normalized {
	out := make([]Normalized, 0, len(entries))
	for _, entry := range entries {
		out = append(out, NormalizeEntry(entry, opts...))
	}
	return out
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithObjectResolver overrides object type and id extraction.
func WithObjectResolver(resolver func(remito.ActivityEvent) (objectType, objectID string)) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor-id used when the event carries none.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func resolveObject(event remito.ActivityEvent, resolver func(remito.ActivityEvent) (string, string)) (string, string) {
	if resolver != nil {
		objectType, objectID := resolver(event)
		return strings.TrimSpace(objectType), strings.TrimSpace(objectID)
	}

	switch event.Action {
	case remito.ActionStatusChange, remito.ActionRemitoCreate:
		return "remito", metadataString(event.Metadata, "remito_id")
	case remito.ActionStatusCreate, remito.ActionStatusUpdate,
		remito.ActionStatusDeactivate, remito.ActionStatusReactivate:
		return "status", metadataString(event.Metadata, "status_id")
	case remito.ActionImpersonationStart, remito.ActionImpersonationStop:
		return "user", metadataString(event.Metadata, "target_id")
	case remito.ActionTenantCreate, remito.ActionTenantStatusChanged:
		return "tenant", metadataString(event.Metadata, "tenant_id")
	case remito.ActionLogin, remito.ActionLogout:
		return "session", strings.TrimSpace(event.ActorID)
	default:
		return "", ""
	}
}

func normalizeMetadata(event remito.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	if impersonator := strings.TrimSpace(event.ImpersonatorID); impersonator != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[MetadataKeyImpersonatorID] = impersonator
	}

	if description := strings.TrimSpace(event.Description); description != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyDescription]; !exists {
			metadata[MetadataKeyDescription] = description
		}
	}

	return metadata
}

func metadataString(metadata map[string]any, key string) string {
	value, _ := metadata[key].(string)
	return strings.TrimSpace(value)
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
