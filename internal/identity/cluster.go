// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identity

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// Equal reports whether two mentions plausibly describe the same person.
// The relation is symmetric but not transitive: "J. Smith" equals both
// "John Smith" and "Jane Smith", which are not equal to each other.
//
// Mentions are equal when any of these hold:
//   - both carry the same strong identifier;
//   - first and last names are identical;
//   - first and last names match ignoring case and hyphens;
//   - one first name is a fragment of at most two characters ("J",
//     "J.") starting with the other's initial, and the last names are
//     identical;
//   - the same with the roles of first and last name swapped.
func Equal(a, b types.IdentityMention) bool {
	if a.StrongID != "" && a.StrongID == b.StrongID {
		return true
	}
	na, nb := ParseName(a.Name), ParseName(b.Name)
	if na.First == "" && na.Last == "" || nb.First == "" && nb.Last == "" {
		return false
	}
	if na.First == nb.First && na.Last == nb.Last {
		return true
	}
	if fold(na.First) == fold(nb.First) && fold(na.Last) == fold(nb.Last) {
		return true
	}
	if na.Last != "" && na.Last == nb.Last &&
		(abbreviates(na.First, nb.First) || abbreviates(nb.First, na.First)) {
		return true
	}
	if na.First != "" && na.First == nb.First &&
		(abbreviates(na.Last, nb.Last) || abbreviates(nb.Last, na.Last)) {
		return true
	}
	return false
}

func fold(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "-", "")
}

// abbreviates reports whether frag is a one- or two-character fragment
// sharing its first character with full.
func abbreviates(frag, full string) bool {
	n := utf8.RuneCountInString(frag)
	if n == 0 || n > 2 || full == "" {
		return false
	}
	f, _ := utf8.DecodeRuneInString(frag)
	g, _ := utf8.DecodeRuneInString(full)
	return f == g
}

// combine merges b into a without side effects. Each name component is
// taken from the side where it is longer, ties going to a. Spellings that
// differ from the combined name become aliases. Identifiers, affiliation
// and local id come from a when set there.
func combine(a, b types.IdentityMention) types.IdentityMention {
	na, nb := ParseName(a.Name), ParseName(b.Name)
	longer := func(x, y string) string {
		if utf8.RuneCountInString(x) >= utf8.RuneCountInString(y) {
			return x
		}
		return y
	}
	name := Name{
		First:  longer(na.First, nb.First),
		Middle: longer(na.Middle, nb.Middle),
		Last:   longer(na.Last, nb.Last),
		Suffix: longer(na.Suffix, nb.Suffix),
	}.String()

	var aliases []string
	add := func(s string) {
		if s != "" && s != name && !slices.Contains(aliases, s) {
			aliases = append(aliases, s)
		}
	}
	add(a.Name)
	add(b.Name)
	for _, s := range a.Aliases {
		add(s)
	}
	for _, s := range b.Aliases {
		add(s)
	}

	return types.IdentityMention{
		Name:        name,
		StrongID:    firstNonEmpty(a.StrongID, b.StrongID),
		SecondaryID: firstNonEmpty(a.SecondaryID, b.SecondaryID),
		Affiliation: firstSet(a.Affiliation, b.Affiliation),
		Aliases:     aliases,
		LocalID:     firstSet(a.LocalID, b.LocalID),
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstSet(a, b types.EntityID) types.EntityID {
	if !a.IsZero() {
		return a
	}
	return b
}

// Edge records that a mention joined a cluster.
type Edge struct {
	// Mention is the index of the joining mention.
	Mention int
	// Root is the index of the mention that seeded the cluster.
	Root int
}

// Cluster is one group of mentions taken to be the same person.
type Cluster struct {
	// Identity is the merge of all members in arrival order.
	Identity types.IdentityMention
	// Members are mention indexes, ascending.
	Members []int
}

// Clustering is the outcome of a single clustering pass.
type Clustering struct {
	Clusters []Cluster
	Edges    []Edge
}

// mergeFunc folds a mention into a cluster identity.
type mergeFunc func(ctx context.Context, into, m types.IdentityMention) (types.IdentityMention, error)

// Clusters groups mentions without touching any store. Each mention after
// the first is compared, in order, with the merged identity of every
// cluster so far and joins the first one it equals; otherwise it seeds a
// new cluster. The result depends on arrival order.
func Clusters(mentions []types.IdentityMention) Clustering {
	c, _ := cluster(context.Background(), mentions, func(_ context.Context, into, m types.IdentityMention) (types.IdentityMention, error) {
		return combine(into, m), nil
	})
	return c
}

func cluster(ctx context.Context, mentions []types.IdentityMention, merge mergeFunc) (Clustering, error) {
	var out Clustering
	if len(mentions) == 0 {
		return out, nil
	}

	uf := newUnionFind(len(mentions))
	roots := []int{0}
	merged := map[int]types.IdentityMention{0: mentions[0]}

	for i := 1; i < len(mentions); i++ {
		m := mentions[i]
		joined := false
		for _, r := range roots {
			if !Equal(merged[r], m) {
				continue
			}
			id, err := merge(ctx, merged[r], m)
			if err != nil {
				return Clustering{}, err
			}
			merged[r] = id
			uf.union(i, r)
			out.Edges = append(out.Edges, Edge{Mention: i, Root: r})
			joined = true
			break
		}
		if !joined {
			roots = append(roots, i)
			merged[i] = m
		}
	}

	members := make(map[int][]int, len(roots))
	for i := range mentions {
		r := uf.find(i)
		members[r] = append(members[r], i)
	}
	for _, r := range roots {
		out.Clusters = append(out.Clusters, Cluster{Identity: merged[r], Members: members[r]})
	}
	return out, nil
}

// unionFind is a disjoint-set forest over mention indexes. The root of a
// set is always the mention that seeded it.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union attaches the set of child under root.
func (u *unionFind) union(child, root int) {
	u.parent[u.find(child)] = u.find(root)
}

// PullLocalID copies the local id of the first pool entry equal to m.
// m is returned unchanged when nothing in pool matches.
func PullLocalID(m types.IdentityMention, pool []types.IdentityMention) types.IdentityMention {
	for _, p := range pool {
		if Equal(m, p) {
			m.LocalID = p.LocalID
			return m
		}
	}
	return m
}
