package msgpack

import (
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// BinaryKind classifies which representation of a MessagePackString is
// authoritative.
type BinaryKind uint8

const (
	// BinaryKindUnknown means neither representation has been forced yet;
	// the value may still turn out to be a valid string.
	BinaryKindUnknown BinaryKind = iota
	// BinaryKindString means the value has decoded text (or is known to).
	BinaryKindString
	// BinaryKindBlob means strict UTF-8 decoding has failed at least once;
	// only the raw bytes are trustworthy.
	BinaryKindBlob
)

// MessagePackString is a dual-representation string/blob value. MessagePack's
// classic "raw" family conflates strings and binary payloads; this type
// accepts either a decoded Go string or a raw byte slice and lazily
// transcodes between the two, tolerating invalid UTF-8 by falling back to a
// binary view instead of losing the payload (§4.2).
type MessagePackString struct {
	bytes   []byte
	haveB   bool
	text    string
	haveT   bool
	kind    BinaryKind
	decErr  error
}

// NewMessagePackStringFromText constructs a value from decoded text.
func NewMessagePackStringFromText(text string) *MessagePackString {
	return &MessagePackString{text: text, haveT: true, kind: BinaryKindString}
}

// NewMessagePackStringFromBytes constructs a value from a raw byte payload
// whose UTF-8 validity is not yet known.
func NewMessagePackStringFromBytes(b []byte) *MessagePackString {
	return &MessagePackString{bytes: b, haveB: true}
}

// encodeIfNeeded writes UTF-8 bytes for the decoded text on first request.
func (m *MessagePackString) encodeIfNeeded() {
	if m.haveB {
		return
	}
	m.bytes = []byte(m.text)
	m.haveB = true
}

// decodeIfNeeded attempts a strict UTF-8 decode of the raw bytes on first
// request. On failure it records the error and flips kind to Blob; it never
// retries after that.
func (m *MessagePackString) decodeIfNeeded() {
	if m.haveT || m.kind == BinaryKindBlob {
		return
	}
	if !m.haveB {
		// Constructed from text directly; nothing to decode.
		return
	}
	if !utf8.Valid(m.bytes) {
		m.decErr = errDecodingFailuref("invalid utf-8 in %d-byte payload", len(m.bytes))
		m.kind = BinaryKindBlob
		return
	}
	m.text = string(m.bytes)
	m.haveT = true
	m.kind = BinaryKindString
}

// TryGetString returns the decoded text and true if decoding has succeeded
// (or the value was built from text directly). It returns ("", false)
// without error if decoding has failed or not yet been attempted
// successfully.
func (m *MessagePackString) TryGetString() (string, bool) {
	m.decodeIfNeeded()
	if m.haveT {
		return m.text, true
	}
	return "", false
}

// GetString returns the decoded text, or the stored decode error if strict
// UTF-8 decoding has failed.
func (m *MessagePackString) GetString() (string, error) {
	m.decodeIfNeeded()
	if m.haveT {
		return m.text, nil
	}
	if m.decErr != nil {
		return "", m.decErr
	}
	return "", ErrDecodingFailure
}

// GetBytes returns the UTF-8 (or raw) byte representation, encoding from
// text on first request if the value was constructed from text.
func (m *MessagePackString) GetBytes() []byte {
	m.encodeIfNeeded()
	return m.bytes
}

// BinaryKind reports which representation is authoritative.
func (m *MessagePackString) BinaryKind() BinaryKind {
	m.decodeIfNeeded()
	if m.kind == BinaryKindUnknown {
		return BinaryKindString
	}
	return m.kind
}

// Equal compares decoded text when both sides have it, else compares raw
// bytes.
func (m *MessagePackString) Equal(other *MessagePackString) bool {
	if m == nil || other == nil {
		return m == other
	}
	mt, mok := m.TryGetString()
	ot, ook := other.TryGetString()
	if mok && ook {
		return mt == ot
	}
	if !mok && !ook {
		return string(m.GetBytes()) == string(other.GetBytes())
	}
	// One side decodes and the other doesn't: a permanently-failing side
	// compares unequal to any successfully-decoding side rather than forcing
	// a decode attempt that has already been tried and failed.
	return false
}

// Hash returns the decoded-text hash when available, else an XOR-rolling
// hash over the raw bytes (§4.2). The algorithm is fixed rather than
// delegated to a general-purpose hash function, since substituting one would
// silently change testable behavior.
func (m *MessagePackString) Hash() uint64 {
	if t, ok := m.TryGetString(); ok {
		return hashString(t)
	}
	return xorRollingHash(m.GetBytes())
}

func hashString(s string) uint64 {
	return xorRollingHash([]byte(s))
}

func xorRollingHash(b []byte) uint64 {
	var h uint64 = 0xcbf29ce484222325
	for _, c := range b {
		h ^= uint64(c)
		h = (h << 5) | (h >> 59)
	}
	return h
}

func errDecodingFailuref(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDecodingFailure, format, args...)
}
