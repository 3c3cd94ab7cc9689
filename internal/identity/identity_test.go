// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identity

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mardi4nfdi/importer/internal/localstore"
	"github.com/mardi4nfdi/importer/internal/mapping"
	"github.com/mardi4nfdi/importer/pkg/types"
)

func id(s string) types.EntityID { return types.MustParseEntityID(s) }

func mention(name string) types.IdentityMention {
	return types.IdentityMention{Name: name}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want Name
		str  string
	}{
		{"john smith", Name{First: "John", Last: "Smith"}, "John Smith"},
		{"Smith, John", Name{First: "John", Last: "Smith"}, "John Smith"},
		{"smith, j.", Name{First: "J.", Last: "Smith"}, "J. Smith"},
		{"J. Smith", Name{First: "J.", Last: "Smith"}, "J. Smith"},
		{"john ronald reuel tolkien", Name{First: "John", Middle: "Ronald Reuel", Last: "Tolkien"}, "John Ronald Reuel Tolkien"},
		{"Dr. jane van der berg", Name{Title: "Dr.", First: "Jane", Last: "van der Berg"}, "Jane van der Berg"},
		{"Prof. Dr. Hans Müller", Name{Title: "Prof. Dr.", First: "Hans", Last: "Müller"}, "Hans Müller"},
		{"martin luther king, jr.", Name{First: "Martin", Middle: "Luther", Last: "King", Suffix: "Jr."}, "Martin Luther King Jr."},
		{"henry ford iii", Name{First: "Henry", Last: "Ford", Suffix: "III"}, "Henry Ford III"},
		{"anne-marie o'neil", Name{First: "Anne-Marie", Last: "O'Neil"}, "Anne-Marie O'Neil"},
		{"mcdonald, ronald", Name{First: "Ronald", Last: "McDonald"}, "Ronald McDonald"},
		{"EULER", Name{First: "Euler"}, "Euler"},
		{"  ada   lovelace ", Name{First: "Ada", Last: "Lovelace"}, "Ada Lovelace"},
		{"", Name{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := ParseName(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.str, got.String())
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b types.IdentityMention
		want bool
	}{
		{mention("John Smith"), mention("John Smith"), true},
		{mention("John Smith"), mention("john smith"), true},
		{mention("Jean-Paul Sartre"), mention("Jeanpaul Sartre"), true},
		{mention("J. Smith"), mention("John Smith"), true},
		{mention("John Smith"), mention("J Smith"), true},
		{mention("John S."), mention("John Smith"), true},
		{mention("J. Smith"), mention("John Smyth"), false},
		{mention("Jo Smith"), mention("John Smith"), true},
		{mention("Jo. Smith"), mention("John Smith"), false},
		{mention("John Smith"), mention("Jane Smith"), false},
		{mention("Joh Smith"), mention("John Smith"), false},
		{
			types.IdentityMention{Name: "Alice Example", StrongID: "0000-0001"},
			types.IdentityMention{Name: "Bob Other", StrongID: "0000-0001"},
			true,
		},
		{
			types.IdentityMention{Name: "Alice Example", StrongID: "0000-0001"},
			types.IdentityMention{Name: "Bob Other", StrongID: "0000-0002"},
			false,
		},
		{mention(""), mention(""), false},
	}
	for _, tc := range tests {
		t.Run(tc.a.Name+"/"+tc.b.Name, func(t *testing.T) {
			assert.Equal(t, tc.want, Equal(tc.a, tc.b))
			assert.Equal(t, tc.want, Equal(tc.b, tc.a), "symmetric")
		})
	}
}

func TestEqual_NotTransitive(t *testing.T) {
	short, john, jane := mention("J. Smith"), mention("John Smith"), mention("Jane Smith")
	assert.True(t, Equal(short, john))
	assert.True(t, Equal(short, jane))
	assert.False(t, Equal(john, jane))
}

func TestClusters_InitialSpellings(t *testing.T) {
	mentions := []types.IdentityMention{
		mention("J. Smith"),
		{Name: "John Smith", StrongID: "X1"},
		mention("J Smith"),
	}

	c := Clusters(mentions)

	require.Len(t, c.Clusters, 1)
	got := c.Clusters[0]
	assert.Equal(t, "John Smith", got.Identity.Name)
	assert.Equal(t, "X1", got.Identity.StrongID)
	assert.ElementsMatch(t, []string{"J. Smith", "J Smith"}, got.Identity.Aliases)
	assert.Equal(t, []int{0, 1, 2}, got.Members)
	assert.Equal(t, []Edge{{Mention: 1, Root: 0}, {Mention: 2, Root: 0}}, c.Edges)
}

func TestClusters_OrderPinned(t *testing.T) {
	tests := []struct {
		name    string
		order   []string
		names   []string
		members [][]int
	}{
		{
			name:    "fragment first joins the first full name",
			order:   []string{"J. Smith", "Jane Smith", "John Smith"},
			names:   []string{"Jane Smith", "John Smith"},
			members: [][]int{{0, 1}, {2}},
		},
		{
			name:    "full name first absorbs the fragment",
			order:   []string{"John Smith", "J. Smith", "Jane Smith"},
			names:   []string{"John Smith", "Jane Smith"},
			members: [][]int{{0, 1}, {2}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var mentions []types.IdentityMention
			for _, n := range tc.order {
				mentions = append(mentions, mention(n))
			}
			c := Clusters(mentions)

			var names []string
			var members [][]int
			for _, cl := range c.Clusters {
				names = append(names, cl.Identity.Name)
				members = append(members, cl.Members)
			}
			assert.Equal(t, tc.names, names)
			if diff := cmp.Diff(tc.members, members); diff != "" {
				t.Errorf("members mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClusters_Empty(t *testing.T) {
	c := Clusters(nil)
	assert.Empty(t, c.Clusters)
	assert.Empty(t, c.Edges)
}

func TestCombine(t *testing.T) {
	a := types.IdentityMention{Name: "J. Smith", Aliases: []string{"Smith J"}, SecondaryID: "smith_j_1"}
	b := types.IdentityMention{Name: "John Adam Smith", StrongID: "0000-0009", Affiliation: id("Q9"), Aliases: []string{"Smith J", "Johnny"}}

	got := combine(a, b)

	want := types.IdentityMention{
		Name:        "John Adam Smith",
		StrongID:    "0000-0009",
		SecondaryID: "smith_j_1",
		Affiliation: id("Q9"),
		Aliases:     []string{"J. Smith", "Smith J", "Johnny"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("combine mismatch (-want +got):\n%s", diff)
	}
}

func TestPullLocalID(t *testing.T) {
	pool := []types.IdentityMention{
		{Name: "Ada Lovelace", LocalID: id("Q2")},
		{Name: "John Smith", LocalID: id("Q1")},
	}

	got := PullLocalID(mention("J. Smith"), pool)
	assert.Equal(t, id("Q1"), got.LocalID)

	none := PullLocalID(mention("Grace Hopper"), pool)
	assert.True(t, none.LocalID.IsZero())
}

var testVocab = types.IdentityConfig{
	Language:        "en",
	Description:     "researcher",
	InstanceOf:      "P1",
	Human:           "Q100",
	StrongIDProp:    "P2",
	SecondaryProp:   "P3",
	AffiliationProp: "P4",
	ProfileProp:     "P5",
	ProfileURL:      "https://portal.example.org/profile/",
}

func newResolver(t *testing.T, store *localstore.MemoryStore, cache Cache, cfg types.IdentityConfig) *Resolver {
	t.Helper()
	r, err := New(store, cache, cfg)
	require.NoError(t, err)
	return r
}

func TestDisambiguate(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()

	existing := types.NewEntity(types.NamespaceItem)
	existing.SetLabel("en", "John Smith")
	smith, err := store.Write(ctx, existing, true)
	require.NoError(t, err)

	r := newResolver(t, store, nil, testVocab)
	got, err := r.Disambiguate(ctx, []types.IdentityMention{
		mention("smith, j."),
		{Name: "John Smith", LocalID: smith},
		mention("J Smith"),
		{Name: "ada lovelace", StrongID: "0000-0001", SecondaryID: "lovelace_a_1", Affiliation: id("Q50")},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, smith, got[0].LocalID)
	assert.Equal(t, "John Smith", got[0].Name)

	rec, err := store.Get(ctx, smith)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", rec.Labels["en"])
	assert.ElementsMatch(t, []string{"J. Smith", "J Smith"}, rec.Aliases["en"])
	assert.Equal(t, "researcher", rec.Descriptions["en"], "description completed")

	ada := got[1]
	assert.Equal(t, "Ada Lovelace", ada.Name)
	require.False(t, ada.LocalID.IsZero())
	rec, err = store.Get(ctx, ada.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", rec.Labels["en"])
	assert.Equal(t, "researcher", rec.Descriptions["en"])
	assert.Equal(t, types.EntityValue{ID: id("Q100")}, rec.StatementsFor(id("P1"))[0].MainSnak.Value)
	assert.Equal(t, types.StringValue{Value: "0000-0001"}, rec.StatementsFor(id("P2"))[0].MainSnak.Value)
	assert.Equal(t, types.StringValue{Value: "lovelace_a_1"}, rec.StatementsFor(id("P3"))[0].MainSnak.Value)
	assert.Equal(t, types.EntityValue{ID: id("Q50")}, rec.StatementsFor(id("P4"))[0].MainSnak.Value)
	assert.Equal(t, types.StringValue{Value: "https://portal.example.org/profile/lovelace_a_1"},
		rec.StatementsFor(id("P5"))[0].MainSnak.Value)

	assert.Equal(t, 2, store.Len())
}

func TestDisambiguate_StrongIDFindsRecord(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()

	existing := types.NewEntity(types.NamespaceItem)
	existing.SetLabel("en", "Grace Brewster Hopper")
	existing.SetDescription("en", "computer scientist")
	existing.Statements = []types.Statement{
		types.NewStatement(id("P2"), types.KindExternalID, types.StringValue{Value: "0000-0002"}),
	}
	hopper, err := store.Write(ctx, existing, true)
	require.NoError(t, err)

	r := newResolver(t, store, nil, testVocab)
	got, err := r.Disambiguate(ctx, []types.IdentityMention{
		{Name: "G. Hopper", StrongID: "0000-0002", SecondaryID: "hopper_g_1"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hopper, got[0].LocalID)
	assert.Equal(t, 1, store.Len())

	rec, err := store.Get(ctx, hopper)
	require.NoError(t, err)
	assert.Equal(t, "Grace Brewster Hopper", rec.Labels["en"], "labels of existing records are kept")
	assert.Equal(t, "computer scientist", rec.Descriptions["en"])
	assert.True(t, rec.HasStatement(id("P3")), "secondary id completed")
	assert.Len(t, rec.StatementsFor(id("P2")), 1)
}

func TestDisambiguate_Teams(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	cache := mapping.NewMemoryRepository()
	_, err := cache.Insert(ctx, id("Q111430684"), id("Q7"), false)
	require.NoError(t, err)

	cfg := testVocab
	cfg.Teams = map[string]string{
		"R Foundation": "Q111430684",
		"CRAN Team":    "Q116739332",
	}
	r := newResolver(t, store, cache, cfg)

	got, err := r.Disambiguate(ctx, []types.IdentityMention{mention("r foundation"), mention("CRAN team")})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id("Q7"), got[0].LocalID)
	assert.True(t, got[1].LocalID.IsZero(), "teams missing from the cache stay unresolved")
	assert.Empty(t, store.Writes())
}

func TestMerge_WritesBackToRecord(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()

	existing := types.NewEntity(types.NamespaceItem)
	existing.SetLabel("en", "E. Noether")
	existing.SetAliases("en", []string{"Noether"})
	noether, err := store.Write(ctx, existing, true)
	require.NoError(t, err)

	r := newResolver(t, store, nil, testVocab)
	got, err := r.Merge(ctx,
		types.IdentityMention{Name: "E. Noether", LocalID: noether},
		mention("Emmy Noether"))
	require.NoError(t, err)
	assert.Equal(t, "Emmy Noether", got.Name)

	rec, err := store.Get(ctx, noether)
	require.NoError(t, err)
	assert.Equal(t, "Emmy Noether", rec.Labels["en"])
	assert.ElementsMatch(t, []string{"E. Noether", "Noether"}, rec.Aliases["en"])
}

func TestMerge_NoRecordNoWrites(t *testing.T) {
	store := localstore.NewMemoryStore()
	r := newResolver(t, store, nil, testVocab)

	got, err := r.Merge(context.Background(), mention("J. Smith"), mention("John Smith"))
	require.NoError(t, err)
	assert.Equal(t, "John Smith", got.Name)
	assert.Empty(t, store.Writes())
}

func TestNew_Errors(t *testing.T) {
	store := localstore.NewMemoryStore()

	bad := testVocab
	bad.StrongIDProp = "ORCID"
	_, err := New(store, nil, bad)
	assert.Error(t, err)

	teams := testVocab
	teams.Teams = map[string]string{"R Core Team": "Q116739338"}
	_, err = New(store, nil, teams)
	assert.Error(t, err)
}
