package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaultsPushedEventIncludesScopeMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	scopeMeta := map[string]any{"tenant": "acme"}
	input := PropsEventInput{
		ActorID:        " actor ",
		TenantID:       " tenant ",
		Component:      "card",
		Keys:           []string{"size", "tone"},
		Metadata:       meta,
		Scope:          ScopeContext{Name: "tenant", Label: "Tenant", Priority: 50, Metadata: scopeMeta, SnapshotID: "snap-1"},
		DefinitionCode: "props:defaults",
		Recipients:     []string{"ops@example.com"},
	}

	event := BuildDefaultsPushedEvent(input)

	assert.Equal(t, VerbDefaultsPushed, event.Verb)
	assert.Equal(t, "props.defaults", event.ObjectType)
	assert.Equal(t, "snap-1", event.ObjectID)
	assert.Equal(t, "actor", event.ActorID)
	assert.Equal(t, "tenant", event.TenantID)
	assert.Equal(t, "card", event.Metadata["component"])
	assert.Equal(t, []string{"size", "tone"}, event.Metadata["keys"])
	assert.Equal(t, "tenant", event.Metadata["scope_name"])
	assert.Equal(t, 50, event.Metadata["scope_priority"])
	assert.Equal(t, "Tenant", event.Metadata["scope_label"])
	assert.Equal(t, map[string]any{"tenant": "acme"}, event.Metadata["scope_metadata"])
	assert.Equal(t, "snap-1", event.Metadata["snapshot_id"])

	event.Metadata["custom"] = "changed"
	event.Recipients[0] = "changed"
	assert.Equal(t, "value", meta["custom"])
	assert.Equal(t, "ops@example.com", input.Recipients[0])
}

func TestBuildKernelEventsFallBackToComponentID(t *testing.T) {
	event := BuildResolvedChangedEvent(PropsEventInput{Component: "button", Keys: []string{"label"}})
	assert.Equal(t, VerbResolvedChanged, event.Verb)
	assert.Equal(t, "button", event.ObjectID)

	event = BuildSchemaDefinedEvent(PropsEventInput{})
	assert.Equal(t, "props.kernel", event.ObjectID)
}

func TestBuildApplyFailedEventRecordsError(t *testing.T) {
	event := BuildApplyFailedEvent(PropsEventInput{ObjectID: "instance-1", Err: errors.New("no fallback")})
	assert.Equal(t, "instance-1", event.ObjectID)
	assert.Equal(t, "no fallback", event.Metadata["error"])
}

func TestBuildPropsEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	err := hooks.Notify(context.Background(), BuildSchemaDefinedEvent(PropsEventInput{
		Component: "card",
		Keys:      []string{"size"},
	}))
	require.NoError(t, err)
	require.Len(t, capture.Events, 1)
	assert.Equal(t, VerbSchemaDefined, capture.Events[0].Verb)
	assert.False(t, capture.Events[0].OccurredAt.IsZero())
}
