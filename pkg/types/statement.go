// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SnakType tells whether a snak carries a value.
type SnakType string

const (
	SnakValue     SnakType = "value"
	SnakSomeValue SnakType = "somevalue"
	SnakNoValue   SnakType = "novalue"
)

// Rank orders statements for the same property.
type Rank string

const (
	RankPreferred  Rank = "preferred"
	RankNormal     Rank = "normal"
	RankDeprecated Rank = "deprecated"
)

// Snak is a single property/value pair. Value is nil unless SnakType is
// SnakValue.
type Snak struct {
	Property EntityID
	SnakType SnakType
	Datatype ValueKind
	Value    Value
}

// NewSnak returns a value snak.
func NewSnak(property EntityID, kind ValueKind, v Value) Snak {
	return Snak{Property: property, SnakType: SnakValue, Datatype: kind, Value: v}
}

// Reference is one citation supporting a statement.
type Reference struct {
	Snaks []Snak
}

// Statement is a property/value assertion with qualifiers and references.
type Statement struct {
	MainSnak   Snak
	Rank       Rank
	Qualifiers []Snak
	References []Reference
}

// NewStatement returns a normal-rank statement with a single value snak.
func NewStatement(property EntityID, kind ValueKind, v Value) Statement {
	return Statement{MainSnak: NewSnak(property, kind, v), Rank: RankNormal}
}

// Property returns the property of the main snak.
func (s Statement) Property() EntityID { return s.MainSnak.Property }

type snakJSON struct {
	SnakType  SnakType       `json:"snaktype"`
	Property  EntityID       `json:"property"`
	Datatype  ValueKind      `json:"datatype,omitempty"`
	DataValue *dataValueJSON `json:"datavalue,omitempty"`
}

// MarshalJSON encodes the snak in the Wikibase wire format.
func (s Snak) MarshalJSON() ([]byte, error) {
	out := snakJSON{SnakType: s.SnakType, Property: s.Property, Datatype: s.Datatype}
	if out.SnakType == "" {
		out.SnakType = SnakValue
	}
	if s.Value != nil {
		dv, err := encodeValue(s.Value)
		if err != nil {
			return nil, err
		}
		out.DataValue = dv
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a Wikibase wire-format snak.
func (s *Snak) UnmarshalJSON(b []byte) error {
	var in snakJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*s = Snak{Property: in.Property, SnakType: in.SnakType, Datatype: in.Datatype}
	if in.DataValue != nil {
		v, err := decodeValue(in.DataValue)
		if err != nil {
			return fmt.Errorf("decoding %s value of %s: %w", in.DataValue.Type, in.Property, err)
		}
		s.Value = v
	}
	return nil
}

// MarshalYAML renders the snak through its JSON form so exports stay
// readable.
func (s Snak) MarshalYAML() (any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// Equal reports whether two snaks assert the same property, snak type and
// value.
func (s Snak) Equal(o Snak) bool {
	if s.Property != o.Property || s.SnakType != o.SnakType {
		return false
	}
	if (s.Value == nil) != (o.Value == nil) {
		return false
	}
	if s.Value == nil {
		return true
	}
	a, errA := encodeValue(s.Value)
	b, errB := encodeValue(o.Value)
	if errA != nil || errB != nil {
		return false
	}
	return a.Type == b.Type && bytes.Equal(a.Value, b.Value)
}

// groupSnaks groups snaks by property, keeping the first-seen order of
// properties.
func groupSnaks(snaks []Snak) (map[string][]Snak, []string) {
	groups := make(map[string][]Snak)
	var order []string
	for _, sn := range snaks {
		key := sn.Property.String()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], sn)
	}
	return groups, order
}

// flattenSnaks is the inverse of groupSnaks. Properties missing from order
// are appended in map order of the input, which only happens for malformed
// input.
func flattenSnaks(groups map[string][]Snak, order []string) []Snak {
	var out []Snak
	seen := make(map[string]bool, len(order))
	for _, p := range order {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, groups[p]...)
	}
	for p, snaks := range groups {
		if !seen[p] {
			out = append(out, snaks...)
		}
	}
	return out
}

type referenceJSON struct {
	Hash       string            `json:"hash,omitempty"`
	Snaks      map[string][]Snak `json:"snaks"`
	SnaksOrder []string          `json:"snaks-order"`
}

// MarshalJSON encodes the reference in the Wikibase wire format.
func (r Reference) MarshalJSON() ([]byte, error) {
	groups, order := groupSnaks(r.Snaks)
	return json.Marshal(referenceJSON{Snaks: groups, SnaksOrder: order})
}

// UnmarshalJSON decodes a Wikibase wire-format reference. The hash is
// discarded; it is recomputed by whichever graph stores the reference.
func (r *Reference) UnmarshalJSON(b []byte) error {
	var in referenceJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	r.Snaks = flattenSnaks(in.Snaks, in.SnaksOrder)
	return nil
}

type statementJSON struct {
	MainSnak        Snak              `json:"mainsnak"`
	Type            string            `json:"type"`
	Rank            Rank              `json:"rank,omitempty"`
	Qualifiers      map[string][]Snak `json:"qualifiers,omitempty"`
	QualifiersOrder []string          `json:"qualifiers-order,omitempty"`
	References      []Reference       `json:"references,omitempty"`
}

// MarshalJSON encodes the statement in the Wikibase wire format without a
// statement id.
func (s Statement) MarshalJSON() ([]byte, error) {
	out := statementJSON{MainSnak: s.MainSnak, Type: "statement", Rank: s.Rank, References: s.References}
	if out.Rank == "" {
		out.Rank = RankNormal
	}
	if len(s.Qualifiers) > 0 {
		out.Qualifiers, out.QualifiersOrder = groupSnaks(s.Qualifiers)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a Wikibase wire-format statement. Statement ids are
// dropped.
func (s *Statement) UnmarshalJSON(b []byte) error {
	var in statementJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*s = Statement{MainSnak: in.MainSnak, Rank: in.Rank, References: in.References}
	if len(in.Qualifiers) > 0 {
		s.Qualifiers = flattenSnaks(in.Qualifiers, in.QualifiersOrder)
	}
	return nil
}

// MarshalYAML renders the statement through its JSON form.
func (s Statement) MarshalYAML() (any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}
