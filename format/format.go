// Package format defines the on-disk tag table for the codec and the small
// enums shared across the store: the 1-byte type tags that prefix every
// encoded value, and the optional blob-compression algorithm tag.
//
// Tag assignment is part of the on-disk contract: once a store has written
// records using these tags, the table must not change meaning across
// versions of this module.
package format

// Tag is the 1-byte type discriminator at the start of every encoded value.
type Tag byte

// Built-in tags. 0x40-0xFF are reserved for user-registered types (see
// codec.Registry); 0x1D-0x3F are reserved and must fail to decode.
const (
	TagNil      Tag = 0x00
	TagFalse    Tag = 0x01
	TagTrue     Tag = 0x02
	TagInt64    Tag = 0x03
	TagFloat64  Tag = 0x04
	TagString   Tag = 0x05
	TagKeyword  Tag = 0x06
	TagSymbol   Tag = 0x07
	TagUUID     Tag = 0x08
	TagInstant  Tag = 0x09
	TagBytes    Tag = 0x0A
	TagSeq      Tag = 0x0B
	TagMap      Tag = 0x0C
	TagSet      Tag = 0x0D
	TagInt16    Tag = 0x0E
	TagInt8     Tag = 0x0F
	TagFloat32  Tag = 0x10
	TagChar     Tag = 0x11
	TagBigInt   Tag = 0x12
	TagDecimal  Tag = 0x13
	TagRatio    Tag = 0x14
	TagInt16Arr Tag = 0x15
	TagInt32Arr Tag = 0x16
	TagInt64Arr Tag = 0x17
	TagF32Arr   Tag = 0x18
	TagF64Arr   Tag = 0x19
	TagBoolArr  Tag = 0x1A
	TagCharArr  Tag = 0x1B
	TagInt32    Tag = 0x1C

	// UserTagMin is the first tag byte available to registered handlers.
	UserTagMin Tag = 0x40
	// ReservedMin is the first tag byte in the reserved, always-invalid range.
	ReservedMin Tag = 0x1D
	// ReservedMax is the last tag byte in the reserved, always-invalid range.
	ReservedMax Tag = 0x3F
)

// Reserved reports whether t falls in the reserved 0x1D-0x3F range that
// decoders must reject.
func (t Tag) Reserved() bool {
	return t >= ReservedMin && t <= ReservedMax
}

// User reports whether t is in the user-extension range (>= 0x40).
func (t Tag) User() bool {
	return t >= UserTagMin
}

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "nil"
	case TagFalse:
		return "false"
	case TagTrue:
		return "true"
	case TagInt64:
		return "int64"
	case TagFloat64:
		return "float64"
	case TagString:
		return "string"
	case TagKeyword:
		return "keyword"
	case TagSymbol:
		return "symbol"
	case TagUUID:
		return "uuid"
	case TagInstant:
		return "instant"
	case TagBytes:
		return "bytes"
	case TagSeq:
		return "sequence"
	case TagMap:
		return "mapping"
	case TagSet:
		return "set"
	case TagInt16:
		return "int16"
	case TagInt8:
		return "int8"
	case TagFloat32:
		return "float32"
	case TagChar:
		return "char"
	case TagBigInt:
		return "bigint"
	case TagDecimal:
		return "decimal"
	case TagRatio:
		return "ratio"
	case TagInt16Arr:
		return "int16[]"
	case TagInt32Arr:
		return "int32[]"
	case TagInt64Arr:
		return "int64[]"
	case TagF32Arr:
		return "float32[]"
	case TagF64Arr:
		return "float64[]"
	case TagBoolArr:
		return "bool[]"
	case TagCharArr:
		return "char[]"
	case TagInt32:
		return "int32"
	default:
		if t.User() {
			return "user"
		}

		return "unknown"
	}
}

// CompressionType identifies the optional algorithm used to compress a raw
// byte payload before it is stored under the codec's bytes tag (spec §2
// domain-stack addition; never applies to structured fields).
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1
	CompressionZstd CompressionType = 0x2
	CompressionS2   CompressionType = 0x3
	CompressionLZ4  CompressionType = 0x4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
