// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.yaml.in/yaml/v3"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// sink is the surface shared by Store and MemoryStore.
type sink interface {
	Get(ctx context.Context, id types.EntityID) (*types.Entity, error)
	Write(ctx context.Context, e *types.Entity, asNew bool) (types.EntityID, error)
	FindExisting(ctx context.Context, e *types.Entity) (types.EntityID, bool, error)
	FindByValue(ctx context.Context, property types.EntityID, value string) (types.EntityID, bool, error)
}

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(types.LocalStoreConfig{Dir: dir, MaxResults: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store, dir
}

func sinks(t *testing.T) map[string]sink {
	s, _ := testSetup(t)
	return map[string]sink{"sqlite": s, "memory": NewMemoryStore()}
}

func item(label, desc string) *types.Entity {
	e := types.NewEntity(types.NamespaceItem)
	e.SetLabel("en", label)
	if desc != "" {
		e.SetDescription("en", desc)
	}
	return e
}

func property(label string, kind types.ValueKind) *types.Entity {
	e := types.NewEntity(types.NamespaceProperty)
	e.SetLabel("en", label)
	e.Datatype = kind
	return e
}

var ignoreModified = cmp.Options{cmpopts.IgnoreFields(types.Entity{}, "Modified"), cmpopts.EquateEmpty()}

func TestWrite_AllocatesPerNamespace(t *testing.T) {
	ctx := context.Background()
	for name, s := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			tests := []struct {
				e    *types.Entity
				want string
			}{
				{item("Douglas Adams", "writer"), "Q1"},
				{property("instance of", types.KindItem), "P1"},
				{item("human", ""), "Q2"},
				{property("date of birth", types.KindTime), "P2"},
			}
			for _, tt := range tests {
				id, err := s.Write(ctx, tt.e, true)
				if err != nil {
					t.Fatal(err)
				}
				if id.String() != tt.want {
					t.Errorf("Write(%s) = %s, want %s", tt.e.Labels["en"], id, tt.want)
				}
				if !tt.e.ID.IsZero() {
					t.Errorf("Write modified caller record id to %s", tt.e.ID)
				}
			}
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p31 := types.MustParseEntityID("P1")
	alt := 12.5
	for name, s := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			e := item("Earth", "third planet")
			e.SetAliases("en", []string{"Blue Planet", "Terra"})
			e.Statements = []types.Statement{
				types.NewStatement(p31, types.KindItem, types.EntityValue{ID: types.MustParseEntityID("Q3")}),
				{
					MainSnak: types.NewSnak(p31, types.KindGlobeCoordinate, types.GlobeCoordinate{
						Latitude: 1, Longitude: 2, Altitude: &alt, Precision: 0.1, Globe: "http://local/entity/Q3",
					}),
					Rank:       types.RankPreferred,
					Qualifiers: []types.Snak{{Property: p31, SnakType: types.SnakNoValue, Datatype: types.KindItem}},
					References: []types.Reference{{Snaks: []types.Snak{
						types.NewSnak(p31, types.KindString, types.StringValue{Value: "ref"}),
					}}},
				},
			}

			id, err := s.Write(ctx, e, true)
			if err != nil {
				t.Fatal(err)
			}
			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatal(err)
			}

			want := e.Clone()
			want.ID = id
			if diff := cmp.Diff(want, got, ignoreModified); diff != "" {
				t.Errorf("Get mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWrite_ReplaceExisting(t *testing.T) {
	ctx := context.Background()
	for name, s := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Write(ctx, item("Earth", "planet"), true)
			if err != nil {
				t.Fatal(err)
			}

			updated := item("Earth", "third planet from the Sun")
			updated.ID = id
			got, err := s.Write(ctx, updated, false)
			if err != nil {
				t.Fatal(err)
			}
			if got != id {
				t.Errorf("Write(existing) = %s, want %s", got, id)
			}

			stored, err := s.Get(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			if stored.Descriptions["en"] != "third planet from the Sun" {
				t.Errorf("description = %q, want replaced value", stored.Descriptions["en"])
			}

			// The old description no longer matches.
			if _, ok, _ := s.FindExisting(ctx, item("Earth", "planet")); ok {
				t.Error("FindExisting matched a replaced description")
			}
		})
	}
}

func TestWrite_Errors(t *testing.T) {
	ctx := context.Background()
	for name, s := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			missing := item("ghost", "")
			missing.ID = types.MustParseEntityID("Q404")
			if _, err := s.Write(ctx, missing, false); !errors.Is(err, types.ErrNotFound) {
				t.Errorf("Write(unknown id) error = %v, want ErrNotFound", err)
			}

			if _, err := s.Write(ctx, item("no id", ""), false); err == nil {
				t.Error("Write(existing without id) succeeded")
			}

			if _, err := s.Write(ctx, &types.Entity{}, true); err == nil {
				t.Error("Write(no namespace) succeeded")
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	for name, s := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), types.MustParseEntityID("Q9"))
			if !errors.Is(err, types.ErrNotFound) {
				t.Errorf("Get error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestFindExisting(t *testing.T) {
	ctx := context.Background()
	for name, s := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			adams, _ := s.Write(ctx, item("Douglas Adams", "English writer"), true)
			bare, _ := s.Write(ctx, item("Berlin", ""), true)
			prop, _ := s.Write(ctx, property("instance of", types.KindItem), true)

			tests := []struct {
				name   string
				e      *types.Entity
				want   types.EntityID
				wantOK bool
			}{
				{"label and description", item("Douglas Adams", "English writer"), adams, true},
				{"different description", item("Douglas Adams", "American footballer"), types.EntityID{}, false},
				{"no description matches none", item("Berlin", ""), bare, true},
				{"description vs none", item("Berlin", "capital of Germany"), types.EntityID{}, false},
				{"property label only", property("instance of", types.KindString), prop, true},
				{"item does not match property", item("instance of", ""), types.EntityID{}, false},
				{"unknown label", item("Zaphod", ""), types.EntityID{}, false},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, ok, err := s.FindExisting(ctx, tt.e)
					if err != nil {
						t.Fatal(err)
					}
					if ok != tt.wantOK || got != tt.want {
						t.Errorf("FindExisting = %s, %v, want %s, %v", got, ok, tt.want, tt.wantOK)
					}
				})
			}
		})
	}
}

func TestFindByValue(t *testing.T) {
	ctx := context.Background()
	orcid := types.MustParseEntityID("P3")
	for name, s := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			e := item("Jane Doe", "researcher")
			e.Statements = []types.Statement{
				types.NewStatement(orcid, types.KindExternalID, types.StringValue{Value: "0000-0002-1825-0097"}),
			}
			id, err := s.Write(ctx, e, true)
			if err != nil {
				t.Fatal(err)
			}

			got, ok, err := s.FindByValue(ctx, orcid, "0000-0002-1825-0097")
			if err != nil {
				t.Fatal(err)
			}
			if !ok || got != id {
				t.Errorf("FindByValue = %s, %v, want %s, true", got, ok, id)
			}

			if _, ok, _ := s.FindByValue(ctx, orcid, "0000-0000-0000-0000"); ok {
				t.Error("FindByValue matched an unknown value")
			}
			if _, ok, _ := s.FindByValue(ctx, types.MustParseEntityID("P4"), "0000-0002-1825-0097"); ok {
				t.Error("FindByValue matched the wrong property")
			}
		})
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s, _ := testSetup(t)

	e := item("Douglas Adams", "English science fiction writer")
	e.SetAliases("en", []string{"DNA"})
	adams, _ := s.Write(ctx, e, true)
	s.Write(ctx, item("Douglas fir", "species of tree"), true)
	s.Write(ctx, property("author", types.KindItem), true)

	results, err := s.Search(ctx, QueryOptions{Query: "douglas"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("Search(douglas) returned %d results, want 2", len(results))
	}

	results, err = s.Search(ctx, QueryOptions{Query: "science"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != adams || results[0].Label != "Douglas Adams" {
		t.Errorf("Search(science) = %+v, want Douglas Adams", results)
	}

	results, err = s.Search(ctx, QueryOptions{Query: "author", Namespace: types.NamespaceItem})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("Search(author, items) = %+v, want none", results)
	}

	results, err = s.Search(ctx, QueryOptions{Query: "douglas", MaxResults: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("Search(MaxResults=1) returned %d results", len(results))
	}
}

func TestSearch_ReplacedTermsAreNotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := testSetup(t)

	id, _ := s.Write(ctx, item("Old Name", ""), true)
	e := item("New Name", "")
	e.ID = id
	if _, err := s.Write(ctx, e, false); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, QueryOptions{Query: "old"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("Search(old) = %+v, want none", results)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	s, dir := testSetup(t)
	s.Write(ctx, property("instance of", types.KindItem), true)
	s.Write(ctx, item("Earth", "planet"), true)

	path, err := s.ExportYAML(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, indexDir, "export.yaml") {
		t.Errorf("ExportYAML path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var yamlOut []map[string]any
	if err := yaml.Unmarshal(data, &yamlOut); err != nil {
		t.Fatal(err)
	}
	if len(yamlOut) != 2 || yamlOut[0]["id"] != "Q1" || yamlOut[1]["id"] != "P1" {
		t.Errorf("export.yaml = %v, want Q1 then P1", yamlOut)
	}

	path, err = s.ExportJSON(ctx, types.NamespaceProperty)
	if err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var jsonOut []types.Entity
	if err := json.Unmarshal(data, &jsonOut); err != nil {
		t.Fatal(err)
	}
	if len(jsonOut) != 1 || jsonOut[0].Datatype != types.KindItem {
		t.Errorf("export.json = %+v, want the property only", jsonOut)
	}
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	s, _ := testSetup(t)
	s.Write(ctx, item("a", ""), true)
	s.Write(ctx, item("b", ""), true)
	s.Write(ctx, property("c", types.KindString), true)

	if n, _ := s.Count(ctx, types.NamespaceItem); n != 2 {
		t.Errorf("Count(items) = %d, want 2", n)
	}
	if n, _ := s.Count(ctx, types.NamespaceProperty); n != 1 {
		t.Errorf("Count(properties) = %d, want 1", n)
	}
}

func TestMemoryStore_RecordsWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	id, _ := m.Write(ctx, item("a", ""), true)
	e := item("a", "updated")
	e.ID = id
	m.Write(ctx, e, false)

	want := []WriteEvent{{ID: id, AsNew: true, Label: "a"}, {ID: id, AsNew: false, Label: "a"}}
	if diff := cmp.Diff(want, m.Writes()); diff != "" {
		t.Errorf("Writes mismatch (-want +got):\n%s", diff)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}
