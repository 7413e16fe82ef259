/*
Package msgpack implements a MessagePack codec for statically typed,
object-oriented data.

It provides a pull-based Packer/Unpacker pair over the MessagePack wire
grammar, a polymorphic Serializer contract with a reflective object
serializer for arbitrary struct types, and a SerializationContext that
resolves and memoises a type's Serializer on first use.

Features

  - Marshal/Unmarshal for whole values, or Packer/Unpacker for streaming.
  - Struct tags (`msgpack:"name,option=value"`) for member renaming, array
    position, nil-implication policy, and enum wire method.
  - Map-shape (default) or array-shape aggregate encoding.
  - Enum handling by name or by underlying integer value.
  - A dynamic Object value for callers without a static schema.
  - Concurrent-safe serializer registry with cycle-safe construction for
    self-referential types.

See SerializationContext for configuration and GetSerializer for the
type-to-serializer resolution protocol.
*/
package msgpack
