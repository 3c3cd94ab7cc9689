// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity clusters contributor mentions into canonical people and
// backs each of them with one local record.
//
// Clustering is greedy and order dependent: a mention joins the first
// cluster whose merged identity it equals. Because the equality heuristic
// is not transitive, two mentions that each match a third may land in
// different clusters depending on arrival order. Callers that need the
// same grouping twice must present mentions in the same order.
package identity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/mardi4nfdi/importer/internal/mapping"
	"github.com/mardi4nfdi/importer/pkg/types"
)

// Sink is the local graph as seen by the resolver.
type Sink interface {
	Get(ctx context.Context, id types.EntityID) (*types.Entity, error)
	Write(ctx context.Context, e *types.Entity, asNew bool) (types.EntityID, error)
	FindByValue(ctx context.Context, property types.EntityID, value string) (types.EntityID, bool, error)
}

// Cache resolves foreign ids of known organisations.
type Cache interface {
	Lookup(ctx context.Context, foreignID types.EntityID) (mapping.Entry, bool, error)
}

// vocabulary holds the parsed local ids of IdentityConfig.
type vocabulary struct {
	instanceOf  types.EntityID
	human       types.EntityID
	strongID    types.EntityID
	secondary   types.EntityID
	affiliation types.EntityID
	profile     types.EntityID
}

// Resolver disambiguates mentions and writes contributor records.
type Resolver struct {
	sink        Sink
	cache       Cache
	vocab       vocabulary
	language    string
	description string
	profileURL  string
	teams       map[string]types.EntityID
	logger      *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New returns a Resolver writing to sink. cache may be nil when no teams
// are configured.
func New(sink Sink, cache Cache, cfg types.IdentityConfig, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		sink:        sink,
		cache:       cache,
		language:    cfg.Language,
		description: cfg.Description,
		profileURL:  cfg.ProfileURL,
		teams:       make(map[string]types.EntityID, len(cfg.Teams)),
		logger:      zap.NewNop(),
	}
	if r.language == "" {
		r.language = "en"
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  *types.EntityID
	}{
		{"instance_of", cfg.InstanceOf, &r.vocab.instanceOf},
		{"human", cfg.Human, &r.vocab.human},
		{"strong_id_property", cfg.StrongIDProp, &r.vocab.strongID},
		{"secondary_id_property", cfg.SecondaryProp, &r.vocab.secondary},
		{"affiliation_property", cfg.AffiliationProp, &r.vocab.affiliation},
		{"profile_property", cfg.ProfileProp, &r.vocab.profile},
	} {
		if f.raw == "" {
			continue
		}
		id, err := types.ParseEntityID(f.raw)
		if err != nil {
			return nil, fmt.Errorf("identity %s: %w", f.name, err)
		}
		*f.dst = id
	}

	for name, raw := range cfg.Teams {
		id, err := types.ParseEntityID(raw)
		if err != nil {
			return nil, fmt.Errorf("identity team %q: %w", name, err)
		}
		r.teams[strings.ToLower(strings.TrimSpace(name))] = id
	}
	if len(r.teams) > 0 && cache == nil {
		return nil, errors.New("identity teams need a mapping cache")
	}

	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Merge combines b into a. When the result is tied to a local record,
// directly or through its strong identifier, the record's label and
// aliases are rewritten at once.
func (r *Resolver) Merge(ctx context.Context, a, b types.IdentityMention) (types.IdentityMention, error) {
	m := combine(a, b)
	if m.LocalID.IsZero() {
		for _, strong := range []string{a.StrongID, b.StrongID} {
			local, ok, err := r.lookupStrong(ctx, strong)
			if err != nil {
				return types.IdentityMention{}, err
			}
			if ok {
				m.LocalID = local
				break
			}
		}
	}
	if m.LocalID.IsZero() {
		return m, nil
	}

	rec, err := r.sink.Get(ctx, m.LocalID)
	if err != nil {
		return types.IdentityMention{}, fmt.Errorf("reading contributor %s: %w", m.LocalID, err)
	}
	aliases := slices.Clone(m.Aliases)
	for _, s := range rec.Aliases[r.language] {
		if s != m.Name && !slices.Contains(aliases, s) {
			aliases = append(aliases, s)
		}
	}
	rec.SetLabel(r.language, m.Name)
	rec.SetAliases(r.language, aliases)
	if _, err := r.sink.Write(ctx, rec, false); err != nil {
		return types.IdentityMention{}, fmt.Errorf("writing contributor %s: %w", m.LocalID, err)
	}
	r.logger.Debug("contributor merged", zap.Stringer("local", m.LocalID), zap.String("name", m.Name))
	return m, nil
}

// Disambiguate normalizes and clusters mentions, then makes sure every
// cluster has a local record: clusters without one get a new record, and
// existing records are completed with missing identifiers, affiliation and
// description. Labels and aliases of existing records are left alone.
// The returned identities are in cluster order.
func (r *Resolver) Disambiguate(ctx context.Context, mentions []types.IdentityMention) ([]types.IdentityMention, error) {
	normalized := make([]types.IdentityMention, len(mentions))
	for i, m := range mentions {
		m.Name = Normalize(m.Name)
		normalized[i] = m
	}

	c, err := cluster(ctx, normalized, r.Merge)
	if err != nil {
		return nil, err
	}
	r.logger.Info("mentions clustered", zap.Int("mentions", len(mentions)), zap.Int("clusters", len(c.Clusters)))

	out := make([]types.IdentityMention, 0, len(c.Clusters))
	for _, cl := range c.Clusters {
		id, err := r.materialize(ctx, cl.Identity)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// materialize ties m to a local record, creating one if needed.
func (r *Resolver) materialize(ctx context.Context, m types.IdentityMention) (types.IdentityMention, error) {
	if m.LocalID.IsZero() {
		local, ok, err := r.lookupStrong(ctx, m.StrongID)
		if err != nil {
			return m, err
		}
		if ok {
			m.LocalID = local
		}
	}
	if !m.LocalID.IsZero() {
		return m, r.complete(ctx, m)
	}

	if foreign, ok := r.teams[strings.ToLower(m.Name)]; ok {
		entry, found, err := r.cache.Lookup(ctx, foreign)
		if err != nil {
			return m, fmt.Errorf("team %q: %w", m.Name, err)
		}
		if !found {
			r.logger.Warn("team not imported", zap.String("name", m.Name), zap.Stringer("foreign", foreign))
			return m, nil
		}
		m.LocalID = entry.LocalID
		return m, nil
	}

	rec := types.NewEntity(types.NamespaceItem)
	rec.SetLabel(r.language, m.Name)
	rec.SetAliases(r.language, m.Aliases)
	rec.SetDescription(r.language, r.description)
	if !r.vocab.instanceOf.IsZero() && !r.vocab.human.IsZero() {
		rec.Statements = append(rec.Statements,
			types.NewStatement(r.vocab.instanceOf, types.KindItem, types.EntityValue{ID: r.vocab.human}))
	}
	r.addIdentifiers(rec, m)

	local, err := r.sink.Write(ctx, rec, true)
	if err != nil {
		return m, fmt.Errorf("creating contributor %q: %w", m.Name, err)
	}
	r.logger.Debug("contributor created", zap.Stringer("local", local), zap.String("name", m.Name))
	m.LocalID = local
	return m, nil
}

// complete adds missing identifiers, affiliation and description to the
// record of m.
func (r *Resolver) complete(ctx context.Context, m types.IdentityMention) error {
	rec, err := r.sink.Get(ctx, m.LocalID)
	if err != nil {
		return fmt.Errorf("reading contributor %s: %w", m.LocalID, err)
	}
	before := len(rec.Statements)
	r.addIdentifiers(rec, m)
	changed := len(rec.Statements) != before
	if r.description != "" && rec.Descriptions[r.language] == "" {
		rec.SetDescription(r.language, r.description)
		changed = true
	}
	if !changed {
		return nil
	}
	if _, err := r.sink.Write(ctx, rec, false); err != nil {
		return fmt.Errorf("writing contributor %s: %w", m.LocalID, err)
	}
	return nil
}

// addIdentifiers appends identifier, affiliation and profile statements
// the record does not have yet.
func (r *Resolver) addIdentifiers(rec *types.Entity, m types.IdentityMention) {
	add := func(prop types.EntityID, kind types.ValueKind, v types.Value) {
		if prop.IsZero() || rec.HasStatement(prop) {
			return
		}
		rec.Statements = append(rec.Statements, types.NewStatement(prop, kind, v))
	}
	if m.StrongID != "" {
		add(r.vocab.strongID, types.KindExternalID, types.StringValue{Value: m.StrongID})
	}
	if m.SecondaryID != "" {
		add(r.vocab.secondary, types.KindExternalID, types.StringValue{Value: m.SecondaryID})
		if r.profileURL != "" {
			add(r.vocab.profile, types.KindURL, types.StringValue{Value: r.profileURL + m.SecondaryID})
		}
	}
	if !m.Affiliation.IsZero() {
		add(r.vocab.affiliation, types.KindItem, types.EntityValue{ID: m.Affiliation})
	}
}

// lookupStrong finds the record carrying the strong identifier.
func (r *Resolver) lookupStrong(ctx context.Context, strong string) (types.EntityID, bool, error) {
	if strong == "" || r.vocab.strongID.IsZero() {
		return types.EntityID{}, false, nil
	}
	local, ok, err := r.sink.FindByValue(ctx, r.vocab.strongID, strong)
	if err != nil {
		return types.EntityID{}, false, fmt.Errorf("looking up %s: %w", strong, err)
	}
	return local, ok, nil
}
