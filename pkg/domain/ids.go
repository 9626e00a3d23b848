// Package domain holds shared domain primitives: typed identifiers that make
// cross-entity assignment a compile error instead of a data bug.
package domain

import (
	"github.com/google/uuid"

	dErrors "recordvault/pkg/domain-errors"
)

// RecordID identifies a record internally. Never handed to third parties;
// external systems see the ExternalRef instead.
type RecordID uuid.UUID

// ExternalRef is the second globally unique identifier exposed in place of
// RecordID to keep internal ids out of third-party references.
type ExternalRef uuid.UUID

// OwnerID identifies the identity that owns records and attachments.
type OwnerID uuid.UUID

// NewRecordID returns a fresh random record id.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

// NewExternalRef returns a fresh random external reference.
func NewExternalRef() ExternalRef { return ExternalRef(uuid.New()) }

// NewOwnerID returns a fresh random owner id.
func NewOwnerID() OwnerID { return OwnerID(uuid.New()) }

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, what+" must not be the nil UUID")
	}
	return u, nil
}

// ParseRecordID validates and returns a RecordID. Rejects empty, malformed,
// and nil UUIDs at the trust boundary.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record id")
	return RecordID(u), err
}

// ParseExternalRef validates and returns an ExternalRef.
func ParseExternalRef(s string) (ExternalRef, error) {
	u, err := parseUUID(s, "external ref")
	return ExternalRef(u), err
}

// ParseOwnerID validates and returns an OwnerID.
func ParseOwnerID(s string) (OwnerID, error) {
	u, err := parseUUID(s, "owner id")
	return OwnerID(u), err
}

func (id RecordID) String() string    { return uuid.UUID(id).String() }
func (id ExternalRef) String() string { return uuid.UUID(id).String() }
func (id OwnerID) String() string     { return uuid.UUID(id).String() }

func (id RecordID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ExternalRef) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id OwnerID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// Text marshaling so the typed ids serialize as canonical UUID strings in
// JSON instead of raw byte arrays.

func (id RecordID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *RecordID) UnmarshalText(b []byte) error {
	parsed, err := ParseRecordID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ExternalRef) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *ExternalRef) UnmarshalText(b []byte) error {
	parsed, err := ParseExternalRef(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id OwnerID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *OwnerID) UnmarshalText(b []byte) error {
	parsed, err := ParseOwnerID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
