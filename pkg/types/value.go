// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
)

// ValueKind is the datatype of a property and of every snak made with it.
// The string values match the Wikibase datatype names.
type ValueKind string

const (
	KindString          ValueKind = "string"
	KindExternalID      ValueKind = "external-id"
	KindURL             ValueKind = "url"
	KindCommonsMedia    ValueKind = "commonsMedia"
	KindMath            ValueKind = "math"
	KindGeoShape        ValueKind = "geo-shape"
	KindTabularData     ValueKind = "tabular-data"
	KindMusicalNotation ValueKind = "musical-notation"
	KindMonolingualText ValueKind = "monolingualtext"
	KindTime            ValueKind = "time"
	KindQuantity        ValueKind = "quantity"
	KindItem            ValueKind = "wikibase-item"
	KindProperty        ValueKind = "wikibase-property"
	KindGlobeCoordinate ValueKind = "globe-coordinate"
	KindLexeme          ValueKind = "wikibase-lexeme"
	KindSense           ValueKind = "wikibase-sense"
	KindForm            ValueKind = "wikibase-form"
	KindEntitySchema    ValueKind = "entity-schema"
)

// AllValueKinds lists every kind the importer knows about.
var AllValueKinds = []ValueKind{
	KindString, KindExternalID, KindURL, KindCommonsMedia, KindMath,
	KindGeoShape, KindTabularData, KindMusicalNotation, KindMonolingualText,
	KindTime, KindQuantity, KindItem, KindProperty, KindGlobeCoordinate,
	KindLexeme, KindSense, KindForm, KindEntitySchema,
}

// DefaultExcludedKinds are the kinds that can never be mirrored: they point
// into namespaces the local graph does not support.
var DefaultExcludedKinds = []ValueKind{KindLexeme, KindSense, KindForm, KindEntitySchema}

// IsEntityRef reports whether values of this kind reference another entity.
func (k ValueKind) IsEntityRef() bool {
	return k == KindItem || k == KindProperty
}

// Value is the closed set of snak values. Only the types in this package
// implement it.
type Value interface {
	// wireType is the Wikibase datavalue "type" field.
	wireType() string
}

// StringValue carries every string-shaped kind (string, external-id, url,
// commonsMedia, math, geo-shape, tabular-data, musical-notation).
type StringValue struct {
	Value string
}

// MonolingualText is a string tagged with a language.
type MonolingualText struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// TimeValue is a point in time with a precision (0 = billion years ...
// 11 = day, 14 = second).
type TimeValue struct {
	Time          string `json:"time"`
	Timezone      int    `json:"timezone"`
	Before        int    `json:"before"`
	After         int    `json:"after"`
	Precision     int    `json:"precision"`
	CalendarModel string `json:"calendarmodel"`
}

// QuantityValue is an amount with optional bounds and a unit. Unit is "1"
// for unitless quantities and otherwise a concept URI of the unit entity.
type QuantityValue struct {
	Amount     string `json:"amount"`
	UpperBound string `json:"upperBound,omitempty"`
	LowerBound string `json:"lowerBound,omitempty"`
	Unit       string `json:"unit"`
}

// EntityValue references an item or property.
type EntityValue struct {
	ID EntityID
}

// GlobeCoordinate is a position on a globe. Globe is a concept URI.
type GlobeCoordinate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude"`
	Precision float64  `json:"precision"`
	Globe     string   `json:"globe"`
}

// RawValue keeps a datavalue the importer does not interpret (lexemes,
// senses, forms, schemas). It round-trips unchanged.
type RawValue struct {
	Type string
	JSON json.RawMessage
}

func (StringValue) wireType() string     { return "string" }
func (MonolingualText) wireType() string { return "monolingualtext" }
func (TimeValue) wireType() string       { return "time" }
func (QuantityValue) wireType() string   { return "quantity" }
func (EntityValue) wireType() string     { return "wikibase-entityid" }
func (GlobeCoordinate) wireType() string { return "globecoordinate" }
func (v RawValue) wireType() string      { return v.Type }

type entityValueJSON struct {
	EntityType string `json:"entity-type"`
	NumericID  int64  `json:"numeric-id,omitempty"`
	ID         string `json:"id"`
}

type dataValueJSON struct {
	Value json.RawMessage `json:"value"`
	Type  string          `json:"type"`
}

func encodeValue(v Value) (*dataValueJSON, error) {
	var (
		raw []byte
		err error
	)
	switch x := v.(type) {
	case StringValue:
		raw, err = json.Marshal(x.Value)
	case EntityValue:
		raw, err = json.Marshal(entityValueJSON{
			EntityType: x.ID.Namespace.String(),
			NumericID:  x.ID.Numeric,
			ID:         x.ID.String(),
		})
	case RawValue:
		raw = x.JSON
	case MonolingualText, TimeValue, QuantityValue, GlobeCoordinate:
		raw, err = json.Marshal(x)
	default:
		return nil, fmt.Errorf("encoding value of type %T: %w", v, ErrUnsupportedValueKind)
	}
	if err != nil {
		return nil, err
	}
	return &dataValueJSON{Value: raw, Type: v.wireType()}, nil
}

func decodeValue(dv *dataValueJSON) (Value, error) {
	switch dv.Type {
	case "string":
		var s string
		if err := json.Unmarshal(dv.Value, &s); err != nil {
			return nil, err
		}
		return StringValue{Value: s}, nil
	case "monolingualtext":
		var m MonolingualText
		err := json.Unmarshal(dv.Value, &m)
		return m, err
	case "time":
		var t TimeValue
		err := json.Unmarshal(dv.Value, &t)
		return t, err
	case "quantity":
		var q QuantityValue
		err := json.Unmarshal(dv.Value, &q)
		return q, err
	case "globecoordinate":
		var g GlobeCoordinate
		err := json.Unmarshal(dv.Value, &g)
		return g, err
	case "wikibase-entityid":
		var ev entityValueJSON
		if err := json.Unmarshal(dv.Value, &ev); err != nil {
			return nil, err
		}
		id, err := ParseEntityID(ev.ID)
		if err != nil {
			// Lexemes, forms and senses are not addressable locally.
			return RawValue{Type: dv.Type, JSON: dv.Value}, nil
		}
		return EntityValue{ID: id}, nil
	default:
		return RawValue{Type: dv.Type, JSON: dv.Value}, nil
	}
}
