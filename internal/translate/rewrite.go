// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package translate

import (
	"errors"
	"fmt"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// defaultGlobePrecision replaces a zero globe precision (one arcsecond).
const defaultGlobePrecision = 1.0 / 3600

// resolution maps foreign ids to local ids. Absent ids are unresolved.
type resolution map[types.EntityID]types.EntityID

var (
	errUnresolved = errors.New("unresolved reference")
	errNoEntity   = errors.New("entity snak without value")
)

// rewriteEnv is what a rule may consult.
type rewriteEnv struct {
	table     resolution
	localLink func(types.EntityID) string
	remote    func(string) (types.EntityID, bool)
}

// rule translates one value of a given kind. An error drops the snak.
type rule func(v types.Value, env rewriteEnv) (types.Value, error)

// rules holds one entry per known value kind.
var rules = map[types.ValueKind]rule{
	types.KindString:          keepAs[types.StringValue],
	types.KindExternalID:      keepAs[types.StringValue],
	types.KindURL:             keepAs[types.StringValue],
	types.KindCommonsMedia:    keepAs[types.StringValue],
	types.KindMath:            keepAs[types.StringValue],
	types.KindGeoShape:        keepAs[types.StringValue],
	types.KindTabularData:     keepAs[types.StringValue],
	types.KindMusicalNotation: keepAs[types.StringValue],
	types.KindMonolingualText: keepAs[types.MonolingualText],
	types.KindTime:            keepAs[types.TimeValue],
	types.KindQuantity:        rewriteQuantity,
	types.KindItem:            rewriteEntity,
	types.KindProperty:        rewriteEntity,
	types.KindGlobeCoordinate: rewriteGlobe,
	types.KindLexeme:          unsupported,
	types.KindSense:           unsupported,
	types.KindForm:            unsupported,
	types.KindEntitySchema:    unsupported,
}

// keepAs passes values of type T through unchanged.
func keepAs[T types.Value](v types.Value, _ rewriteEnv) (types.Value, error) {
	if _, ok := v.(T); !ok {
		return nil, fmt.Errorf("value %T: %w", v, types.ErrUnsupportedValueKind)
	}
	return v, nil
}

func unsupported(v types.Value, _ rewriteEnv) (types.Value, error) {
	return nil, types.ErrUnsupportedValueKind
}

func rewriteEntity(v types.Value, env rewriteEnv) (types.Value, error) {
	ev, ok := v.(types.EntityValue)
	if !ok {
		return nil, fmt.Errorf("value %T: %w", v, types.ErrUnsupportedValueKind)
	}
	local, ok := env.table[ev.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ev.ID, errUnresolved)
	}
	return types.EntityValue{ID: local}, nil
}

func rewriteQuantity(v types.Value, env rewriteEnv) (types.Value, error) {
	q, ok := v.(types.QuantityValue)
	if !ok {
		return nil, fmt.Errorf("value %T: %w", v, types.ErrUnsupportedValueKind)
	}
	q.Unit = env.rewriteLink(q.Unit)
	return q, nil
}

func rewriteGlobe(v types.Value, env rewriteEnv) (types.Value, error) {
	g, ok := v.(types.GlobeCoordinate)
	if !ok {
		return nil, fmt.Errorf("value %T: %w", v, types.ErrUnsupportedValueKind)
	}
	g.Globe = env.rewriteLink(g.Globe)
	if g.Precision == 0 {
		g.Precision = defaultGlobePrecision
	}
	return g, nil
}

// rewriteLink points a remote concept URI at the local graph. Links that
// are not remote, or whose target did not resolve, are kept.
func (env rewriteEnv) rewriteLink(link string) string {
	id, ok := env.remote(link)
	if !ok {
		return link
	}
	local, ok := env.table[id]
	if !ok {
		return link
	}
	return env.localLink(local)
}

// drop records why a snak was left out.
type drop struct {
	property types.EntityID
	where    string
	reason   error
}

func (t *Translator) env(table resolution) rewriteEnv {
	return rewriteEnv{
		table:     table,
		localLink: func(id types.EntityID) string { return t.cfg.LocalConceptBase + id.String() },
		remote:    t.remoteLink,
	}
}

// rewrite translates statements against table without side effects.
func (t *Translator) rewrite(statements []types.Statement, table resolution) ([]types.Statement, []drop) {
	env := t.env(table)

	var (
		out   []types.Statement
		drops []drop
	)
	for _, st := range statements {
		main, err := t.rewriteSnak(st.MainSnak, env)
		if err != nil {
			drops = append(drops, drop{st.MainSnak.Property, "statement", err})
			continue
		}

		ns := types.Statement{MainSnak: main, Rank: st.Rank}
		for _, q := range st.Qualifiers {
			sn, err := t.rewriteSnak(q, env)
			if err != nil {
				drops = append(drops, drop{q.Property, "qualifier", err})
				continue
			}
			ns.Qualifiers = append(ns.Qualifiers, sn)
		}
		for _, ref := range st.References {
			var snaks []types.Snak
			for _, rs := range ref.Snaks {
				sn, err := t.rewriteSnak(rs, env)
				if err != nil {
					drops = append(drops, drop{rs.Property, "reference", err})
					continue
				}
				snaks = append(snaks, sn)
			}
			if len(snaks) > 0 {
				ns.References = append(ns.References, types.Reference{Snaks: snaks})
			}
		}
		out = append(out, ns)
	}
	return out, drops
}

func (t *Translator) rewriteSnak(sn types.Snak, env rewriteEnv) (types.Snak, error) {
	if t.excludedProps[sn.Property] {
		return types.Snak{}, fmt.Errorf("%s: %w", sn.Property, types.ErrExcludedProperty)
	}
	kind := snakKind(sn)
	if t.excludedKinds[kind] {
		return types.Snak{}, fmt.Errorf("%s: %w", kind, types.ErrUnsupportedValueKind)
	}
	apply, ok := rules[kind]
	if !ok {
		return types.Snak{}, fmt.Errorf("kind %q: %w", kind, types.ErrUnsupportedValueKind)
	}
	// somevalue and novalue snaks of entity kinds have nothing to point at
	// locally.
	if kind.IsEntityRef() && sn.Value == nil {
		return types.Snak{}, fmt.Errorf("%s: %w", sn.Property, errNoEntity)
	}

	prop, ok := env.table[sn.Property]
	if !ok {
		return types.Snak{}, fmt.Errorf("property %s: %w", sn.Property, errUnresolved)
	}

	out := types.Snak{Property: prop, SnakType: sn.SnakType, Datatype: kind}
	if out.SnakType == "" {
		out.SnakType = types.SnakValue
	}
	if out.SnakType != types.SnakValue || sn.Value == nil {
		return out, nil
	}
	v, err := apply(sn.Value, env)
	if err != nil {
		return types.Snak{}, err
	}
	out.Value = v
	return out, nil
}
