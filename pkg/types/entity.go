// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"slices"
	"time"
)

// Entity is an item or property record. A record fetched from the remote
// graph (a foreign record) is transient; a record held by the local store
// has every reference already translated to local ids.
type Entity struct {
	// ID is the foreign id for fetched records and the local id for stored
	// ones. It is zero for records that have not been written yet.
	ID EntityID `json:"id" yaml:"id"`

	// Datatype is set for properties only.
	Datatype ValueKind `json:"datatype,omitempty" yaml:"datatype,omitempty"`

	// Labels, Descriptions and Aliases are keyed by language code.
	Labels       map[string]string   `json:"labels,omitempty" yaml:"labels,omitempty"`
	Descriptions map[string]string   `json:"descriptions,omitempty" yaml:"descriptions,omitempty"`
	Aliases      map[string][]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	Statements []Statement `json:"statements,omitempty" yaml:"statements,omitempty"`

	// Modified is set by the local store on every write.
	Modified time.Time `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// NewEntity returns an empty record in namespace ns. The ID stays zero
// until the record is written; Namespace is kept in ID.Namespace.
func NewEntity(ns Namespace) *Entity {
	return &Entity{
		ID:           EntityID{Namespace: ns},
		Labels:       map[string]string{},
		Descriptions: map[string]string{},
		Aliases:      map[string][]string{},
	}
}

// Namespace returns the namespace the record belongs to.
func (e *Entity) Namespace() Namespace { return e.ID.Namespace }

// Clone returns a deep copy of the record.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Labels = cloneMap(e.Labels)
	c.Descriptions = cloneMap(e.Descriptions)
	if e.Aliases != nil {
		c.Aliases = make(map[string][]string, len(e.Aliases))
		for k, v := range e.Aliases {
			c.Aliases[k] = slices.Clone(v)
		}
	}
	if e.Statements != nil {
		c.Statements = make([]Statement, len(e.Statements))
		for i, s := range e.Statements {
			c.Statements[i] = s.Clone()
		}
	}
	return &c
}

// Clone returns a copy of the statement that shares no slices with s.
// Values are immutable and are shared.
func (s Statement) Clone() Statement {
	c := s
	c.Qualifiers = slices.Clone(s.Qualifiers)
	if s.References != nil {
		c.References = make([]Reference, len(s.References))
		for i, r := range s.References {
			c.References[i] = Reference{Snaks: slices.Clone(r.Snaks)}
		}
	}
	return c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SetLabel sets the label for lang.
func (e *Entity) SetLabel(lang, value string) {
	if e.Labels == nil {
		e.Labels = map[string]string{}
	}
	e.Labels[lang] = value
}

// SetDescription sets the description for lang.
func (e *Entity) SetDescription(lang, value string) {
	if e.Descriptions == nil {
		e.Descriptions = map[string]string{}
	}
	e.Descriptions[lang] = value
}

// SetAliases replaces the aliases for lang.
func (e *Entity) SetAliases(lang string, values []string) {
	if e.Aliases == nil {
		e.Aliases = map[string][]string{}
	}
	if len(values) == 0 {
		delete(e.Aliases, lang)
		return
	}
	e.Aliases[lang] = slices.Clone(values)
}

// ReplaceDescriptions overwrites all descriptions with those of src.
func (e *Entity) ReplaceDescriptions(src map[string]string) {
	e.Descriptions = cloneMap(src)
}

// StatementsFor returns the statements whose main snak uses property.
func (e *Entity) StatementsFor(property EntityID) []Statement {
	var out []Statement
	for _, s := range e.Statements {
		if s.Property() == property {
			out = append(out, s)
		}
	}
	return out
}

// HasStatement reports whether any statement uses property.
func (e *Entity) HasStatement(property EntityID) bool {
	return len(e.StatementsFor(property)) > 0
}

// AddStatements merges incoming statements with append-or-replace
// semantics: a statement whose main snak equals an existing one for the
// same property replaces it in place (refreshing qualifiers and
// references); any other statement is appended.
func (e *Entity) AddStatements(incoming []Statement) {
	for _, in := range incoming {
		replaced := false
		for i, cur := range e.Statements {
			if cur.MainSnak.Equal(in.MainSnak) {
				e.Statements[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			e.Statements = append(e.Statements, in)
		}
	}
}

// FilterLanguages keeps only terms in languages. Descriptions equal to the
// label in the same language are cleared. An empty languages slice keeps
// everything.
func (e *Entity) FilterLanguages(languages []string) {
	if len(languages) > 0 {
		keep := func(lang string) bool { return slices.Contains(languages, lang) }
		for lang := range e.Labels {
			if !keep(lang) {
				delete(e.Labels, lang)
			}
		}
		for lang := range e.Descriptions {
			if !keep(lang) {
				delete(e.Descriptions, lang)
			}
		}
		for lang := range e.Aliases {
			if !keep(lang) {
				delete(e.Aliases, lang)
			}
		}
	}
	for lang, label := range e.Labels {
		if d, ok := e.Descriptions[lang]; ok && d == label {
			delete(e.Descriptions, lang)
		}
	}
}

// HasLabel reports whether the record has at least one non-empty label.
func (e *Entity) HasLabel() bool {
	for _, v := range e.Labels {
		if v != "" {
			return true
		}
	}
	return false
}

// MappingEntry is one row of the id mapping cache.
type MappingEntry struct {
	ForeignID     EntityID `json:"foreign_id" yaml:"foreign_id"`
	LocalID       EntityID `json:"local_id" yaml:"local_id"`
	FullyImported bool     `json:"fully_imported" yaml:"fully_imported"`
}
