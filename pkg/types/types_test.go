// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestParseEntityID(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityID
		wantErr bool
	}{
		{in: "Q42", want: EntityID{Namespace: NamespaceItem, Numeric: 42}},
		{in: "P31", want: EntityID{Namespace: NamespaceProperty, Numeric: 31}},
		{in: "q5", want: EntityID{Namespace: NamespaceItem, Numeric: 5}},
		{in: " Q7 ", want: EntityID{Namespace: NamespaceItem, Numeric: 7}},
		{in: "L7", wantErr: true},
		{in: "Q0", wantErr: true},
		{in: "Q042", wantErr: true},
		{in: "", wantErr: true},
		{in: "Q", wantErr: true},
		{in: "Q99999999999999999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEntityID(tt.in)
			if tt.wantErr {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve), "want *ValidationError, got %v", err)
				assert.Equal(t, tt.in, ve.Value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, MustParseEntityID(got.String()))
		})
	}
}

func TestEntityID_YAML(t *testing.T) {
	type row struct {
		Foreign EntityID `yaml:"foreign"`
		Local   EntityID `yaml:"local,omitempty"`
	}
	var r row
	require.NoError(t, yaml.Unmarshal([]byte("foreign: Q42\n"), &r))
	assert.Equal(t, MustParseEntityID("Q42"), r.Foreign)
	assert.True(t, r.Local.IsZero())

	err := yaml.Unmarshal([]byte("foreign: L1\n"), &r)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestEntity_AddStatements(t *testing.T) {
	p31 := MustParseEntityID("P31")
	p69 := MustParseEntityID("P69")

	e := NewEntity(NamespaceItem)
	e.Statements = []Statement{
		NewStatement(p31, KindItem, EntityValue{ID: MustParseEntityID("Q5")}),
	}

	refreshed := NewStatement(p31, KindItem, EntityValue{ID: MustParseEntityID("Q5")})
	refreshed.Qualifiers = []Snak{NewSnak(p69, KindString, StringValue{Value: "x"})}
	e.AddStatements([]Statement{
		refreshed,
		NewStatement(p31, KindItem, EntityValue{ID: MustParseEntityID("Q6")}),
	})

	require.Len(t, e.Statements, 2)
	assert.Len(t, e.Statements[0].Qualifiers, 1, "equal main snak replaces in place")
	assert.Len(t, e.StatementsFor(p31), 2)
	assert.False(t, e.HasStatement(p69))
}

func TestEntity_FilterLanguages(t *testing.T) {
	e := NewEntity(NamespaceItem)
	e.SetLabel("en", "Douglas Adams")
	e.SetLabel("fr", "Douglas Adams")
	e.SetDescription("en", "Douglas Adams")
	e.SetDescription("fr", "écrivain")
	e.SetAliases("fr", []string{"DNA"})

	e.FilterLanguages([]string{"en"})

	assert.Equal(t, map[string]string{"en": "Douglas Adams"}, e.Labels)
	assert.Empty(t, e.Descriptions, "description equal to label is cleared")
	assert.Empty(t, e.Aliases)
	assert.True(t, e.HasLabel())
}

func TestEntity_CloneIsDeep(t *testing.T) {
	e := NewEntity(NamespaceItem)
	e.SetLabel("en", "a")
	e.SetAliases("en", []string{"b"})

	c := e.Clone()
	c.SetLabel("en", "changed")
	c.Aliases["en"][0] = "changed"

	assert.Equal(t, "a", e.Labels["en"])
	assert.Equal(t, []string{"b"}, e.Aliases["en"])
}
