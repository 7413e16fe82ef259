package msgpack

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// Codec-level errors.
var (
	ErrEndOfStream          = errors.New("msgpack: unexpected end of stream")
	ErrInvalidStream        = errors.New("msgpack: invalid messagepack stream")
	ErrMessageTypeMismatch  = errors.New("msgpack: message type mismatch")
	ErrIO                   = errors.New("msgpack: i/o error")
	ErrSubtreeOverconsumed  = errors.New("msgpack: subtree reader consumed more than one value")
)

// Serializer-layer errors.
var (
	ErrValueCannotBeNull    = errors.New("msgpack: value cannot be null")
	ErrMissingRequiredValue = errors.New("msgpack: missing required value")
	ErrTooLargeCollection   = errors.New("msgpack: collection too large to encode")
	ErrNotSupported         = errors.New("msgpack: operation not supported for this type")
)

// Repository / build-protocol errors.
var (
	ErrNoDefaultConstructor = errors.New("msgpack: type has no default constructor")
	ErrAbstractType         = errors.New("msgpack: type is an interface or abstract type")
	ErrNotRegistered        = errors.New("msgpack: no serializer registered for type")
)

// Enum-serializer errors.
var (
	ErrUnknownEnumMember          = errors.New("msgpack: unknown enum member")
	ErrEnumUnderlyingTypeMismatch = errors.New("msgpack: enum underlying type mismatch")
)

// ErrDecodingFailure is stored inside a MessagePackString when strict UTF-8
// decoding fails; it is never returned directly by the codec layer.
var ErrDecodingFailure = errors.New("msgpack: string is not valid utf-8")

func errEndOfStreamf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrEndOfStream, format, args...)
}

func errInvalidStreamf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidStream, format, args...)
}

func errTypeMismatchf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMessageTypeMismatch, format, args...)
}

func errWrapValueCannotBeNull(t reflect.Type) error {
	return errors.Wrapf(ErrValueCannotBeNull, "type %s does not admit null", t)
}

func errWrapNotSupported(t reflect.Type) error {
	return errors.Wrapf(ErrNotSupported, "type %s does not support UnpackInto", t)
}

func errWrapMissingRequired(name string) error {
	return errors.Wrapf(ErrMissingRequiredValue, "member %q is required", name)
}

func errWrapMissingRequiredPos(what string) error {
	return errors.Wrapf(ErrMissingRequiredValue, "%s is required", what)
}

func errWrapNoDefaultConstructor(t reflect.Type) error {
	return errors.Wrapf(ErrNoDefaultConstructor, "type %s has no default constructor", t)
}

func errWrapAbstractType(t reflect.Type) error {
	return errors.Wrapf(ErrAbstractType, "type %s is an interface or abstract type", t)
}

func errWrapNotRegistered(t reflect.Type) error {
	return errors.Wrapf(ErrNotRegistered, "no serializer registered for type %s", t)
}

func errWrapUnknownEnumMember(t reflect.Type, name string) error {
	return errors.Wrapf(ErrUnknownEnumMember, "type %s has no member named %q", t, name)
}

func errWrapEnumUnderlyingMismatch(t reflect.Type, gotKind Kind) error {
	return errors.Wrapf(ErrEnumUnderlyingTypeMismatch, "enum %s: wire token kind %v does not match underlying type", t, gotKind)
}
