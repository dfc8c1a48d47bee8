/*
Package wire implements the schema-driven binary codec used for chain messages.

A message variant is described as data: a MessageSchema holds the fully
qualified type name and an ordered list of FieldSchema entries. One generic
routine encodes and decodes every variant, so adding a message type means
adding a schema, not writing a codec.

# Wire Format

The binary layout is compatible with Protocol Buffers:

	tag    = varint((field_number << 3) | wire_type)
	string = tag(wire_type=2) varint(len) utf8-bytes
	uint64 = tag(wire_type=0) varint(value)
	bool   = tag(wire_type=0) varint(0|1)

Fields are written in ascending field-number order. A field holding its zero
value ("" or 0 or false) is omitted entirely. There is no terminator and no
outer length prefix; the caller embeds the bytes in its own envelope.

Decoding is tag driven: field order does not matter, unknown fields are
skipped, and any truncated or malformed input fails with ErrMalformedMessage.

# Schema Files

Schemas are usually loaded from YAML:

	package: rewardchain.rewardchain
	messages:
	  - name: MsgSwap
	    fields:
	      - { number: 1, name: creator,   kind: string }
	      - { number: 2, name: partnerId, kind: uint64 }
	      - { number: 3, name: route,     kind: string }
	      - { number: 4, name: points,    kind: string }

# Text Values

ToText and FromText convert between a Value and the flat name→value mapping
used by JSON transports. 64-bit integers are emitted as decimal strings and
accepted either as strings or numbers.
*/
package wire
