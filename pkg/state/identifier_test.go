package state_test

import (
	"testing"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		name  string
		scope props.Scope
		want  string
		err   string
	}{
		{"system", props.NewScope("system", 10), "system/card", ""},
		{"tenant", props.NewScope("tenant", 20, props.WithScopeMetadata(map[string]any{"tenant_id": "acme"})), "tenant/acme/card", ""},
		{"user", props.NewScope("user", 40, props.WithScopeMetadata(map[string]any{"user_id": "u-1"})), "user/u-1/card", ""},
		{"missing id", props.NewScope("team", 30), "", `missing metadata key "team_id" for scope "team"`},
		{"non string id", props.NewScope("org", 30, props.WithScopeMetadata(map[string]any{"org_id": 7})), "", `missing metadata key "org_id" for scope "org"`},
		{"unknown scope", props.NewScope("galaxy", 1), "", `unsupported scope name "galaxy"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := state.Ref{Component: "card", Scope: tc.scope}.Identifier()
			if tc.err != "" {
				require.EqualError(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
