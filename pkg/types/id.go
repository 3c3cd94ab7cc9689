// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Namespace distinguishes the two supported entity kinds.
type Namespace byte

const (
	NamespaceItem     Namespace = 'Q'
	NamespaceProperty Namespace = 'P'
)

func (n Namespace) String() string {
	switch n {
	case NamespaceItem:
		return "item"
	case NamespaceProperty:
		return "property"
	default:
		return "unknown"
	}
}

// idPattern matches "Q42", "P31" and the same forms in lowercase.
var idPattern = regexp.MustCompile(`^([QPqp])([1-9]\d*)$`)

// EntityID identifies an item or property in either graph. The zero value
// is the invalid ID and reports IsZero.
type EntityID struct {
	Namespace Namespace
	Numeric   int64
}

// ParseEntityID parses "Q42" or "P31". Any other form, including lexemes
// ("L7"), forms and senses, yields a *ValidationError.
func ParseEntityID(s string) (EntityID, error) {
	trimmed := strings.TrimSpace(s)
	m := idPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return EntityID{}, &ValidationError{Value: s, Reason: "must be an item (Q) or property (P) id"}
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return EntityID{}, &ValidationError{Value: s, Reason: "numeric part out of range"}
	}
	return EntityID{Namespace: Namespace(strings.ToUpper(m[1])[0]), Numeric: n}, nil
}

// MustParseEntityID is ParseEntityID for literals known to be valid.
func MustParseEntityID(s string) EntityID {
	id, err := ParseEntityID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether id is the zero EntityID.
func (id EntityID) IsZero() bool { return id.Numeric == 0 }

// IsItem reports whether id is in the item namespace.
func (id EntityID) IsItem() bool { return id.Namespace == NamespaceItem }

// IsProperty reports whether id is in the property namespace.
func (id EntityID) IsProperty() bool { return id.Namespace == NamespaceProperty }

func (id EntityID) String() string {
	if id.IsZero() {
		return ""
	}
	return fmt.Sprintf("%c%d", id.Namespace, id.Numeric)
}

// MarshalText implements encoding.TextMarshaler.
func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input decodes
// to the zero EntityID.
func (id *EntityID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = EntityID{}
		return nil
	}
	parsed, err := ParseEntityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (id EntityID) MarshalYAML() (any, error) {
	return id.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (id *EntityID) UnmarshalYAML(node *yaml.Node) error {
	return id.UnmarshalText([]byte(node.Value))
}
