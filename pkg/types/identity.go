// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// IdentityMention is one occurrence of a contributor as reported by an
// upstream source. Several mentions may describe the same person.
type IdentityMention struct {
	// Name is the normalized full name ("John A. Smith").
	Name string `json:"name" yaml:"name"`

	// StrongID is an authoritative identifier (ORCID). Two mentions with
	// the same non-empty StrongID are the same person.
	StrongID string `json:"strong_id,omitempty" yaml:"strong_id,omitempty"`

	// SecondaryID is a source-specific identifier (arXiv author id).
	SecondaryID string `json:"secondary_id,omitempty" yaml:"secondary_id,omitempty"`

	// Affiliation is the local id of the contributor's organisation.
	Affiliation EntityID `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`

	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// LocalID is set once the mention is tied to a local record.
	LocalID EntityID `json:"local_id,omitempty" yaml:"local_id,omitempty"`
}
