package activity

import (
	"maps"
	"strings"
	"time"
)

const (
	VerbSchemaDefined   = "props.schema.defined"
	VerbDefaultsPushed  = "props.defaults.pushed"
	VerbResolvedChanged = "props.resolved.changed"
	VerbApplyFailed     = "props.apply.failed"

	objectTypeKernel   = "props.kernel"
	objectTypeDefaults = "props.defaults"
)

// ScopeContext captures scope metadata associated with a defaults layer.
type ScopeContext struct {
	Name       string
	Label      string
	Priority   int
	Metadata   map[string]any
	SnapshotID string
}

// PropsEventInput describes the common fields for props kernel events.
type PropsEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Component      string
	Keys           []string
	Err            error
	Scope          ScopeContext
	OccurredAt     time.Time
}

// BuildSchemaDefinedEvent reports keys accepted by a define call.
func BuildSchemaDefinedEvent(input PropsEventInput) Event {
	return buildPropsEvent(VerbSchemaDefined, objectTypeKernel, input)
}

// BuildDefaultsPushedEvent reports a new defaults layer.
func BuildDefaultsPushedEvent(input PropsEventInput) Event {
	return buildPropsEvent(VerbDefaultsPushed, objectTypeDefaults, input)
}

// BuildResolvedChangedEvent reports resolved keys that changed in an apply.
func BuildResolvedChangedEvent(input PropsEventInput) Event {
	return buildPropsEvent(VerbResolvedChanged, objectTypeKernel, input)
}

// BuildApplyFailedEvent reports an aborted apply.
func BuildApplyFailedEvent(input PropsEventInput) Event {
	return buildPropsEvent(VerbApplyFailed, objectTypeKernel, input)
}

func buildPropsEvent(verb, objectType string, input PropsEventInput) Event {
	metadata := maps.Clone(input.Metadata)
	if component := strings.TrimSpace(input.Component); component != "" {
		metadata = ensureMetadata(metadata)
		metadata["component"] = component
	}
	if len(input.Keys) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["keys"] = append([]string{}, input.Keys...)
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}
	if input.Scope.Name != "" {
		metadata = ensureMetadata(metadata)
		metadata["scope_name"] = input.Scope.Name
		metadata["scope_priority"] = input.Scope.Priority
		if input.Scope.Label != "" {
			metadata["scope_label"] = input.Scope.Label
		}
		if len(input.Scope.Metadata) > 0 {
			metadata["scope_metadata"] = maps.Clone(input.Scope.Metadata)
		}
	}
	if input.Scope.SnapshotID != "" {
		metadata = ensureMetadata(metadata)
		metadata["snapshot_id"] = input.Scope.SnapshotID
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" && objectType == objectTypeDefaults {
		objectID = strings.TrimSpace(input.Scope.SnapshotID)
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.Component)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
