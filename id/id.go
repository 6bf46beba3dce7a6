// Package id defines the identity types used across the marketplace ledger.
//
// Services and subscriptions are numbered by ledger-wide counters: ids are
// assigned once, strictly increasing, and never reused. Everything else the
// ledger mints (notifications, transfers, commits) carries a TypeID: a
// K-sortable (UUIDv7-based), URL-safe identifier in the format
// "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"go.jetify.com/typeid/v2"
)

// ──────────────────────────────────────────────────
// Counter-assigned ids
// ──────────────────────────────────────────────────

// ServiceID identifies a registered service. Zero is never assigned.
type ServiceID uint64

// SubscriptionID identifies a purchased subscription. Zero is never assigned.
type SubscriptionID uint64

// String returns the decimal form of the id.
func (s ServiceID) String() string { return strconv.FormatUint(uint64(s), 10) }

// IsNil reports whether the id is the unassigned zero value.
func (s ServiceID) IsNil() bool { return s == 0 }

// String returns the decimal form of the id.
func (s SubscriptionID) String() string { return strconv.FormatUint(uint64(s), 10) }

// IsNil reports whether the id is the unassigned zero value.
func (s SubscriptionID) IsNil() bool { return s == 0 }

// ParseServiceID parses a decimal service id.
func ParseServiceID(s string) (ServiceID, error) {
	n, err := parseCounter(s)
	return ServiceID(n), err
}

// ParseSubscriptionID parses a decimal subscription id.
func ParseSubscriptionID(s string) (SubscriptionID, error) {
	n, err := parseCounter(s)
	return SubscriptionID(n), err
}

func parseCounter(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("id: parse %q: empty string", s)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id: parse %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("id: parse %q: zero is not a valid id", s)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// TypeIDs
// ──────────────────────────────────────────────────

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for TypeID-backed entities.
const (
	PrefixNotification Prefix = "evt"  // Emitted notification
	PrefixTransfer     Prefix = "xfer" // Outbound value transfer
	PrefixCommit       Prefix = "cmt"  // Persisted changeset
)

// ID wraps a TypeID providing a prefix-qualified, globally unique,
// sortable identifier.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "evt_01h2xcejqtf2nbrexx3vqjhp41").
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// NewNotificationID generates a new notification ID.
func NewNotificationID() ID { return New(PrefixNotification) }

// NewTransferID generates a new transfer ID.
func NewTransferID() ID { return New(PrefixTransfer) }

// NewCommitID generates a new commit ID.
func NewCommitID() ID { return New(PrefixCommit) }

// ParseNotificationID parses a string and validates the "evt" prefix.
func ParseNotificationID(s string) (ID, error) { return ParseWithPrefix(s, PrefixNotification) }

// ParseTransferID parses a string and validates the "xfer" prefix.
func ParseTransferID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTransfer) }

// ParseCommitID parses a string and validates the "cmt" prefix.
func ParseCommitID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCommit) }

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
