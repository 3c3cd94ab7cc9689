// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package importer mirrors entities from a remote knowledge graph into the
// local one. Every entity referenced by an imported statement is created
// locally as a shallow record (terms only) so that the statement can be
// expressed with local ids.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mardi4nfdi/importer/internal/mapping"
	"github.com/mardi4nfdi/importer/internal/translate"
	"github.com/mardi4nfdi/importer/pkg/types"
)

// Source reads entities from the remote graph. Get returns an error
// wrapping types.ErrNotFound for unknown ids; a redirected id yields an
// entity whose ID differs from the requested one.
type Source interface {
	Get(ctx context.Context, id types.EntityID, languages []string) (*types.Entity, error)
}

// TermSource is implemented by sources that can fetch terms without
// statements. Shallow imports use it when available.
type TermSource interface {
	GetTerms(ctx context.Context, id types.EntityID, languages []string) (*types.Entity, error)
}

// Sink writes records to the local graph.
type Sink interface {
	Get(ctx context.Context, id types.EntityID) (*types.Entity, error)
	Write(ctx context.Context, e *types.Entity, asNew bool) (types.EntityID, error)
	FindExisting(ctx context.Context, e *types.Entity) (types.EntityID, bool, error)
}

// Backlink property labels. The properties hold the foreign id of every
// mirrored item and property.
const (
	ItemBacklinkLabel     = "Wikidata QID"
	PropertyBacklinkLabel = "Wikidata PID"
)

var backlinkDescriptions = map[types.Namespace]string{
	types.NamespaceItem:     "Corresponding QID in Wikidata",
	types.NamespaceProperty: "Identifier in Wikidata of the corresponding properties",
}

// Importer imports entities. Construct it once and share it; it is safe
// for concurrent use.
type Importer struct {
	source     Source
	sink       Sink
	cache      mapping.Repository
	translator *translate.Translator
	languages  []string
	logger     *zap.Logger

	group singleflight.Group
	locks keyedMutex

	mu        sync.Mutex
	pending   map[types.EntityID]*pendingRecord
	backlinks map[types.Namespace]types.EntityID
}

// pendingRecord is a fetched entity whose import has started but not
// finished.
type pendingRecord struct {
	entity *types.Entity
	refs   int
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger. It is also handed to the translator.
func WithLogger(l *zap.Logger) Option {
	return func(im *Importer) { im.logger = l }
}

// New returns an Importer reading from source, writing to sink and
// recording id mappings in cache.
func New(source Source, sink Sink, cache mapping.Repository, cfg types.ImporterConfig, opts ...Option) (*Importer, error) {
	excluded := make([]types.EntityID, 0, len(cfg.ExcludedProperties))
	for _, raw := range cfg.ExcludedProperties {
		id, err := types.ParseEntityID(raw)
		if err != nil {
			return nil, fmt.Errorf("excluded properties: %w", err)
		}
		excluded = append(excluded, id)
	}

	im := &Importer{
		source:    source,
		sink:      sink,
		cache:     cache,
		languages: cfg.EffectiveLanguages(),
		logger:    zap.NewNop(),
		pending:   make(map[types.EntityID]*pendingRecord),
		backlinks: make(map[types.Namespace]types.EntityID),
	}
	for _, o := range opts {
		o(im)
	}
	im.translator = translate.New(im, translate.Config{
		ExcludedProperties:  excluded,
		ExcludedKinds:       cfg.ExcludedKinds,
		RemoteConceptPrefix: cfg.RemoteConceptPrefix,
		LocalConceptBase:    cfg.LocalConceptBase,
	}, translate.WithLogger(im.logger))
	return im, nil
}

// Bootstrap finds or creates the two backlink properties. Imports made
// before Bootstrap carry no backlink statement.
func (im *Importer) Bootstrap(ctx context.Context) error {
	for _, b := range []struct {
		ns    types.Namespace
		label string
	}{
		{types.NamespaceItem, ItemBacklinkLabel},
		{types.NamespaceProperty, PropertyBacklinkLabel},
	} {
		ns, label := b.ns, b.label
		rec := types.NewEntity(types.NamespaceProperty)
		rec.Datatype = types.KindExternalID
		rec.SetLabel("en", label)
		rec.SetDescription("en", backlinkDescriptions[ns])

		id, found, err := im.sink.FindExisting(ctx, rec)
		if err != nil {
			return fmt.Errorf("looking up %q: %w", label, err)
		}
		if !found {
			id, err = im.sink.Write(ctx, rec, true)
			if err != nil {
				return fmt.Errorf("creating %q: %w", label, err)
			}
			recordWrite(ctx, types.NamespaceProperty, "create")
			im.logger.Info("backlink property created", zap.String("label", label), zap.Stringer("id", id))
		}

		im.mu.Lock()
		im.backlinks[ns] = id
		im.mu.Unlock()
	}
	return nil
}

// Backlink returns the local property holding foreign ids of records in
// namespace ns. It is zero before Bootstrap.
func (im *Importer) Backlink(ns types.Namespace) types.EntityID {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.backlinks[ns]
}

// pass selects the behavior of one import path.
type pass struct {
	mode string
	// recurse translates statements and marks the mapping complete.
	recurse bool
	// fastPath answers from complete mapping rows without fetching.
	fastPath bool
	// keepDescriptions leaves the descriptions of a merged record alone.
	keepDescriptions bool
}

var (
	fullPass      = pass{mode: "full", recurse: true, fastPath: true}
	shallowPass   = pass{mode: "shallow", fastPath: true}
	updatePass    = pass{mode: "update", recurse: true, keepDescriptions: true}
	overwritePass = pass{mode: "overwrite", recurse: true, fastPath: true}
)

// parseIDs validates every id before any work is done.
func parseIDs(ids []string) ([]types.EntityID, error) {
	out := make([]types.EntityID, 0, len(ids))
	for _, raw := range ids {
		id, err := types.ParseEntityID(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// ImportEntities imports ids and returns their local ids keyed by the
// requested id. With recurse the statements are imported too, along with
// shallow records for everything they reference. Ids that do not exist
// remotely, have no label in the configured languages or are properties of
// an excluded datatype are left out of the result.
//
// A malformed id fails the whole call before anything is fetched. A fetch
// or write failure stops the call; the returned map holds what was
// imported until then.
func (im *Importer) ImportEntities(ctx context.Context, ids []string, recurse bool) (map[string]types.EntityID, error) {
	parsed, err := parseIDs(ids)
	if err != nil {
		return nil, err
	}
	p := shallowPass
	if recurse {
		p = fullPass
	}
	results := make(map[string]types.EntityID, len(parsed))
	for _, id := range parsed {
		local, ok, err := im.importEntity(ctx, id, p, types.EntityID{})
		if err != nil {
			return results, err
		}
		if ok {
			results[id.String()] = local
		}
	}
	return results, nil
}

// UpdateEntities refetches ids with their statements and merges them into
// the local record found through the mapping cache or duplicate
// detection. Ids with no local counterpart are imported.
func (im *Importer) UpdateEntities(ctx context.Context, ids []string) (map[string]types.EntityID, error) {
	parsed, err := parseIDs(ids)
	if err != nil {
		return nil, err
	}
	results := make(map[string]types.EntityID, len(parsed))
	for _, id := range parsed {
		local, ok, err := im.importEntity(ctx, id, updatePass, types.EntityID{})
		if err != nil {
			return results, err
		}
		if ok {
			results[id.String()] = local
		}
	}
	return results, nil
}

// OverwriteEntity completes the existing local record localID with the
// statements of foreignID. A foreign id that is already complete returns
// its cached local id untouched.
func (im *Importer) OverwriteEntity(ctx context.Context, foreignID, localID string) (types.EntityID, error) {
	foreign, err := types.ParseEntityID(foreignID)
	if err != nil {
		return types.EntityID{}, err
	}
	local, err := types.ParseEntityID(localID)
	if err != nil {
		return types.EntityID{}, err
	}
	if foreign.Namespace != local.Namespace {
		return types.EntityID{}, &types.ValidationError{Value: localID, Reason: "namespace differs from " + foreign.String()}
	}
	got, ok, err := im.importEntity(ctx, foreign, overwritePass, local)
	if err != nil {
		return types.EntityID{}, err
	}
	if !ok {
		return types.EntityID{}, fmt.Errorf("overwriting %s with %s: %w", local, foreign, types.ErrNotFound)
	}
	return got, nil
}

// importEntity runs one top-level import. A non-zero target forces the
// local record to merge into. ok is false for skipped ids.
func (im *Importer) importEntity(ctx context.Context, id types.EntityID, p pass, target types.EntityID) (local types.EntityID, ok bool, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "importer.import", trace.WithAttributes(
		attribute.String("entity.id", id.String()),
		attribute.String(attrMode, p.mode),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		measureImport(ctx, id.Namespace, start)
	}()

	log := im.logger.With(zap.Stringer("id", id), zap.String("mode", p.mode))

	if p.fastPath {
		if local, ok, err := im.complete(ctx, id); err != nil || ok {
			return local, ok, err
		}
	}

	e, ok, err := im.fetch(ctx, id, p.recurse)
	if err != nil || !ok {
		return types.EntityID{}, false, err
	}
	if im.excluded(e) {
		log.Debug("property datatype excluded", zap.String("datatype", string(e.Datatype)))
		return types.EntityID{}, false, nil
	}

	foreign := e.ID
	if foreign != id {
		log.Debug("redirected", zap.Stringer("target", foreign))
		if p.fastPath {
			if local, ok, err := im.complete(ctx, foreign); err != nil || ok {
				return local, ok, err
			}
		}
	}

	done := im.begin(foreign, e)
	defer done()

	rec := shellOf(e)
	if p.recurse {
		statements, err := im.translator.Translate(ctx, e.Statements)
		if err != nil {
			return types.EntityID{}, false, fmt.Errorf("translating %s: %w", foreign, err)
		}
		rec.Statements = statements
	}
	im.attachBacklink(rec, foreign)

	unlock := im.locks.lock(foreign)
	defer unlock()

	local, err = im.commit(ctx, foreign, rec, target, p)
	if err != nil {
		return types.EntityID{}, false, err
	}
	log.Debug("imported", zap.Stringer("local", local), zap.Int("statements", len(rec.Statements)))
	return local, true, nil
}

// ImportClaimEntity makes sure id has a local counterpart and returns it.
// Missing records are created shallow: terms and backlink, no statements.
// ok is false when the id cannot be mirrored. Concurrent calls for the same
// id share one import.
func (im *Importer) ImportClaimEntity(ctx context.Context, id types.EntityID) (types.EntityID, bool, error) {
	type result struct {
		local types.EntityID
		ok    bool
	}
	v, err, _ := im.group.Do(id.String(), func() (any, error) {
		local, ok, err := im.resolveShallow(ctx, id)
		return result{local, ok}, err
	})
	if err != nil {
		return types.EntityID{}, false, err
	}
	r := v.(result)
	return r.local, r.ok, nil
}

// ResolveReference implements translate.Resolver.
func (im *Importer) ResolveReference(ctx context.Context, foreignID types.EntityID) (types.EntityID, bool, error) {
	return im.ImportClaimEntity(ctx, foreignID)
}

func (im *Importer) resolveShallow(ctx context.Context, id types.EntityID) (types.EntityID, bool, error) {
	if entry, ok, err := im.lookup(ctx, id); err != nil || ok {
		return entry.LocalID, ok, err
	}
	// An entity whose own import is under way is reserved from the record
	// already fetched, which breaks reference cycles.
	if e := im.pendingEntity(id); e != nil {
		return im.reserve(ctx, id, e)
	}

	e, ok, err := im.fetch(ctx, id, false)
	if err != nil || !ok {
		return types.EntityID{}, false, err
	}
	if im.excluded(e) {
		return types.EntityID{}, false, nil
	}
	if e.ID != id {
		if entry, ok, err := im.lookup(ctx, e.ID); err != nil || ok {
			return entry.LocalID, ok, err
		}
		if pe := im.pendingEntity(e.ID); pe != nil {
			return im.reserve(ctx, e.ID, pe)
		}
	}
	return im.reserve(ctx, e.ID, e)
}

// reserve creates or claims the shallow local record of foreign.
func (im *Importer) reserve(ctx context.Context, foreign types.EntityID, e *types.Entity) (types.EntityID, bool, error) {
	rec := shellOf(e)
	im.attachBacklink(rec, foreign)

	unlock := im.locks.lock(foreign)
	defer unlock()

	if entry, ok, err := im.lookup(ctx, foreign); err != nil || ok {
		return entry.LocalID, ok, err
	}
	local, err := im.commit(ctx, foreign, rec, types.EntityID{}, pass{mode: "reference"})
	if err != nil {
		return types.EntityID{}, false, err
	}
	return local, true, nil
}

// commit writes rec and records the mapping. The caller holds the lock
// for foreign. The record merged into is, in order: target, the mapped
// local record, a duplicate found in the local graph. Without any of them
// rec is created.
func (im *Importer) commit(ctx context.Context, foreign types.EntityID, rec *types.Entity, target types.EntityID, p pass) (types.EntityID, error) {
	entry, cached, err := im.lookup(ctx, foreign)
	if err != nil {
		return types.EntityID{}, err
	}

	local, found := target, !target.IsZero()
	if !found && cached {
		local, found = entry.LocalID, true
	}
	if !found {
		local, found, err = im.sink.FindExisting(ctx, rec)
		if err != nil {
			return types.EntityID{}, fmt.Errorf("duplicate lookup for %s: %w", foreign, err)
		}
	}

	if found {
		cur, err := im.sink.Get(ctx, local)
		if err != nil {
			return types.EntityID{}, fmt.Errorf("reading local %s: %w", local, err)
		}
		if !p.keepDescriptions {
			cur.ReplaceDescriptions(rec.Descriptions)
		}
		cur.AddStatements(rec.Statements)
		if _, err := im.sink.Write(ctx, cur, false); err != nil {
			return types.EntityID{}, fmt.Errorf("writing local %s: %w", local, err)
		}
		recordWrite(ctx, foreign.Namespace, "merge")
	} else {
		local, err = im.sink.Write(ctx, rec, true)
		if err != nil {
			return types.EntityID{}, fmt.Errorf("creating record for %s: %w", foreign, err)
		}
		recordWrite(ctx, foreign.Namespace, "create")
	}

	if cached {
		if p.recurse && !entry.FullyImported {
			if err := im.cache.MarkFullyImported(ctx, foreign); err != nil {
				return types.EntityID{}, fmt.Errorf("marking %s complete: %w", foreign, err)
			}
		}
		return local, nil
	}

	stored, err := im.cache.Insert(ctx, foreign, local, p.recurse)
	if err != nil {
		return types.EntityID{}, fmt.Errorf("mapping %s: %w", foreign, err)
	}
	if stored.LocalID != local {
		im.logger.Warn("mapping already held another local id",
			zap.Stringer("foreign", foreign),
			zap.Stringer("local", local),
			zap.Stringer("mapped", stored.LocalID))
	}
	if p.recurse && !stored.FullyImported {
		if err := im.cache.MarkFullyImported(ctx, foreign); err != nil {
			return types.EntityID{}, fmt.Errorf("marking %s complete: %w", foreign, err)
		}
	}
	return local, nil
}

// lookup reads the mapping row of id.
func (im *Importer) lookup(ctx context.Context, id types.EntityID) (mapping.Entry, bool, error) {
	entry, ok, err := im.cache.Lookup(ctx, id)
	if err != nil {
		return mapping.Entry{}, false, fmt.Errorf("mapping lookup %s: %w", id, err)
	}
	return entry, ok, nil
}

// complete returns the local id of id when it is fully imported.
func (im *Importer) complete(ctx context.Context, id types.EntityID) (types.EntityID, bool, error) {
	entry, ok, err := im.lookup(ctx, id)
	if err != nil || !ok || !entry.FullyImported {
		return types.EntityID{}, false, err
	}
	recordCacheHit(ctx, id.Namespace)
	return entry.LocalID, true, nil
}

// fetch reads id from the source and applies the language filter. ok is
// false for ids that do not exist or have no label left.
func (im *Importer) fetch(ctx context.Context, id types.EntityID, withStatements bool) (*types.Entity, bool, error) {
	var (
		e   *types.Entity
		err error
	)
	if ts, isTerms := im.source.(TermSource); isTerms && !withStatements {
		e, err = ts.GetTerms(ctx, id, im.languages)
		recordFetch(ctx, id.Namespace, "terms")
	} else {
		e, err = im.source.Get(ctx, id, im.languages)
		recordFetch(ctx, id.Namespace, "full")
	}
	if errors.Is(err, types.ErrNotFound) {
		im.logger.Debug("not found remotely", zap.Stringer("id", id))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fetching %s: %w", id, err)
	}

	e = e.Clone()
	if !withStatements {
		e.Statements = nil
	}
	e.FilterLanguages(im.languages)
	if !e.HasLabel() {
		im.logger.Debug("no label in configured languages", zap.Stringer("id", id))
		return nil, false, nil
	}
	return e, true, nil
}

// excluded reports whether e is a property of an excluded datatype.
func (im *Importer) excluded(e *types.Entity) bool {
	return e.ID.IsProperty() && im.translator.ExcludesKind(e.Datatype)
}

// begin marks foreign as in progress with its fetched record. The returned
// func clears the mark.
func (im *Importer) begin(foreign types.EntityID, e *types.Entity) func() {
	im.mu.Lock()
	p, ok := im.pending[foreign]
	if !ok {
		p = &pendingRecord{entity: e}
		im.pending[foreign] = p
	}
	p.refs++
	im.mu.Unlock()

	return func() {
		im.mu.Lock()
		defer im.mu.Unlock()
		if p.refs--; p.refs == 0 {
			delete(im.pending, foreign)
		}
	}
}

func (im *Importer) pendingEntity(id types.EntityID) *types.Entity {
	im.mu.Lock()
	defer im.mu.Unlock()
	if p, ok := im.pending[id]; ok {
		return p.entity
	}
	return nil
}

// attachBacklink adds the statement linking rec to its foreign id.
func (im *Importer) attachBacklink(rec *types.Entity, foreign types.EntityID) {
	prop := im.Backlink(foreign.Namespace)
	if prop.IsZero() {
		return
	}
	rec.AddStatements([]types.Statement{
		types.NewStatement(prop, types.KindExternalID, types.StringValue{Value: foreign.String()}),
	})
}

// shellOf returns an unwritten local record with the terms of e.
func shellOf(e *types.Entity) *types.Entity {
	rec := e.Clone()
	rec.ID = types.EntityID{Namespace: e.Namespace()}
	rec.Statements = nil
	rec.Modified = time.Time{}
	return rec
}

// BatchResult holds the outcome of a batch import.
type BatchResult struct {
	RunID    string
	Imported int
	Skipped  int
	Failed   int
	IDs      map[string]types.EntityID
}

// Total returns the number of ids processed.
func (r BatchResult) Total() int {
	return r.Imported + r.Skipped + r.Failed
}

// HasFailures reports whether any id failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ImportBatch imports ids one by one, printing a status line per id and a
// summary to w. Unlike ImportEntities it continues after failures,
// including malformed ids.
func (im *Importer) ImportBatch(ctx context.Context, ids []string, recurse bool, w io.Writer) BatchResult {
	result := BatchResult{RunID: uuid.NewString(), IDs: make(map[string]types.EntityID)}
	log := im.logger.With(zap.String("run", result.RunID))
	log.Info("batch started", zap.Int("ids", len(ids)), zap.Bool("recurse", recurse))

	p := shallowPass
	if recurse {
		p = fullPass
	}
	for _, raw := range ids {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", raw, err)
			result.Failed++
			continue
		}
		id, err := types.ParseEntityID(raw)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", raw, err)
			result.Failed++
			continue
		}
		local, ok, err := im.importEntity(ctx, id, p, types.EntityID{})
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed:  %s (%v)\n", id, err)
			log.Warn("import failed", zap.Stringer("id", id), zap.Error(err))
			result.Failed++
		case !ok:
			fmt.Fprintf(w, "skipped: %s (not found, unlabeled or excluded)\n", id)
			result.Skipped++
		default:
			fmt.Fprintf(w, "imported: %s -> %s\n", id, local)
			result.Imported++
			result.IDs[id.String()] = local
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d imported, %d skipped, %d failed (total: %d)\n",
		result.Imported, result.Skipped, result.Failed, result.Total())
	log.Info("batch finished",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result
}

// keyedMutex serializes work per foreign id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[types.EntityID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// lock blocks until id is free and returns the matching unlock.
func (k *keyedMutex) lock(id types.EntityID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[types.EntityID]*refMutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
