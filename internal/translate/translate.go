// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package translate rewrites statements fetched from the remote graph so
// that every embedded reference points at the local graph.
//
// Translation runs on a work-list. The foreign ids of every main snak are
// queued in first-seen order and resolved through a Resolver; then the ids
// in qualifiers and references of the statements that survived are queued
// and resolved. Rewrite is a pure function of the statements and the
// resolution table; it drops whatever cannot be expressed locally.
package translate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// Resolver maps a foreign id to a local id, importing a shallow record
// when needed. ok is false when the id cannot be mirrored (missing
// remotely, excluded); err is reserved for infrastructure failures.
type Resolver interface {
	ResolveReference(ctx context.Context, foreignID types.EntityID) (local types.EntityID, ok bool, err error)
}

// Config holds the translation settings.
type Config struct {
	// ExcludedProperties are foreign property ids whose snaks are dropped.
	ExcludedProperties []types.EntityID

	// ExcludedKinds are value kinds whose snaks are dropped. Nil selects
	// types.DefaultExcludedKinds.
	ExcludedKinds []types.ValueKind

	// RemoteConceptPrefix marks unit and globe links into the remote graph.
	RemoteConceptPrefix string

	// LocalConceptBase is prepended to local ids in rewritten links.
	LocalConceptBase string
}

// Translator translates statements. It holds no per-call state and is
// safe for concurrent use if its Resolver is.
type Translator struct {
	resolver      Resolver
	cfg           Config
	excludedProps map[types.EntityID]bool
	excludedKinds map[types.ValueKind]bool
	logger        *zap.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger used for drop diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(t *Translator) { t.logger = l }
}

// New returns a Translator resolving references through r.
func New(r Resolver, cfg Config, opts ...Option) *Translator {
	t := &Translator{
		resolver:      r,
		cfg:           cfg,
		excludedProps: make(map[types.EntityID]bool),
		excludedKinds: make(map[types.ValueKind]bool),
		logger:        zap.NewNop(),
	}
	for _, p := range cfg.ExcludedProperties {
		t.excludedProps[p] = true
	}
	kinds := cfg.ExcludedKinds
	if kinds == nil {
		kinds = types.DefaultExcludedKinds
	}
	for _, k := range kinds {
		t.excludedKinds[k] = true
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// ExcludesKind reports whether values of kind are never mirrored.
func (t *Translator) ExcludesKind(kind types.ValueKind) bool {
	if t.excludedKinds[kind] {
		return true
	}
	_, known := rules[kind]
	return !known
}

// ExcludesProperty reports whether snaks of property are dropped.
func (t *Translator) ExcludesProperty(property types.EntityID) bool {
	return t.excludedProps[property]
}

// Translate returns the local rendition of statements. The input is not
// modified. Statements, qualifiers and reference snaks that cannot be
// expressed locally are dropped; only resolver failures are returned as
// errors.
//
// Main snaks are resolved before anything attached to them, so qualifiers
// and references of a statement that is dropped never reach the resolver.
func (t *Translator) Translate(ctx context.Context, statements []types.Statement) ([]types.Statement, error) {
	table := make(resolution)
	w := newWorklist()

	for _, st := range statements {
		t.visit(w, st.MainSnak)
	}
	if err := t.resolve(ctx, w.drain(), table); err != nil {
		return nil, err
	}

	env := t.env(table)
	for _, st := range statements {
		if _, err := t.rewriteSnak(st.MainSnak, env); err != nil {
			continue
		}
		for _, q := range st.Qualifiers {
			t.visit(w, q)
		}
		for _, ref := range st.References {
			for _, sn := range ref.Snaks {
				t.visit(w, sn)
			}
		}
	}
	if err := t.resolve(ctx, w.drain(), table); err != nil {
		return nil, err
	}

	out, drops := t.rewrite(statements, table)
	for _, d := range drops {
		t.logger.Debug("snak dropped",
			zap.Stringer("property", d.property),
			zap.String("where", d.where),
			zap.Error(d.reason))
	}
	return out, nil
}

// resolve asks the resolver for every queued id and records the hits.
func (t *Translator) resolve(ctx context.Context, queue []types.EntityID, table resolution) error {
	for _, id := range queue {
		local, ok, err := t.resolver.ResolveReference(ctx, id)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", id, err)
		}
		if ok {
			table[id] = local
		}
	}
	return nil
}

// worklist queues foreign ids in first-seen order. An id is queued at
// most once over the lifetime of the worklist.
type worklist struct {
	queue   []types.EntityID
	visited map[types.EntityID]bool
}

func newWorklist() *worklist {
	return &worklist{visited: make(map[types.EntityID]bool)}
}

func (w *worklist) add(id types.EntityID) {
	if id.IsZero() || w.visited[id] {
		return
	}
	w.visited[id] = true
	w.queue = append(w.queue, id)
}

// drain returns the queued ids and empties the queue.
func (w *worklist) drain() []types.EntityID {
	q := w.queue
	w.queue = nil
	return q
}

// visit queues the property of sn and the ids inside its value. Snaks
// dropped by configuration contribute nothing.
func (t *Translator) visit(w *worklist, sn types.Snak) {
	if t.excludedProps[sn.Property] || t.ExcludesKind(snakKind(sn)) {
		return
	}
	w.add(sn.Property)
	for _, id := range t.valueRefs(sn.Value) {
		w.add(id)
	}
}

// valueRefs returns the foreign ids a value points at.
func (t *Translator) valueRefs(v types.Value) []types.EntityID {
	switch x := v.(type) {
	case types.EntityValue:
		return []types.EntityID{x.ID}
	case types.QuantityValue:
		if id, ok := t.remoteLink(x.Unit); ok {
			return []types.EntityID{id}
		}
	case types.GlobeCoordinate:
		if id, ok := t.remoteLink(x.Globe); ok {
			return []types.EntityID{id}
		}
	}
	return nil
}

// remoteLink extracts the id from a concept URI into the remote graph.
func (t *Translator) remoteLink(link string) (types.EntityID, bool) {
	if t.cfg.RemoteConceptPrefix == "" || !strings.Contains(link, t.cfg.RemoteConceptPrefix) {
		return types.EntityID{}, false
	}
	i := strings.LastIndex(link, "/")
	id, err := types.ParseEntityID(link[i+1:])
	if err != nil {
		return types.EntityID{}, false
	}
	return id, true
}

// snakKind returns the declared datatype of a snak, inferring it from the
// value when the wire format omitted it.
func snakKind(sn types.Snak) types.ValueKind {
	if sn.Datatype != "" {
		return sn.Datatype
	}
	switch x := sn.Value.(type) {
	case types.StringValue:
		return types.KindString
	case types.MonolingualText:
		return types.KindMonolingualText
	case types.TimeValue:
		return types.KindTime
	case types.QuantityValue:
		return types.KindQuantity
	case types.GlobeCoordinate:
		return types.KindGlobeCoordinate
	case types.EntityValue:
		if x.ID.IsProperty() {
			return types.KindProperty
		}
		return types.KindItem
	}
	return ""
}
