// Package ck3bin implements a pull-style lexer over
// CK3's binary tokenized save format.
package ck3bin

// Kind tags which variant of the Token tagged union is populated.
type Kind int

const (
	KindOpen Kind = iota
	KindClose
	KindEqual
	KindID
	KindBool
	KindU32
	KindI32
	KindU64
	KindI64
	KindF32
	KindF64
	KindQuoted
	KindUnquoted
	KindRgb
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "Open"
	case KindClose:
		return "Close"
	case KindEqual:
		return "Equal"
	case KindID:
		return "Id"
	case KindBool:
		return "Bool"
	case KindU32:
		return "U32"
	case KindI32:
		return "I32"
	case KindU64:
		return "U64"
	case KindI64:
		return "I64"
	case KindF32:
		return "F32"
	case KindF64:
		return "F64"
	case KindQuoted:
		return "Quoted"
	case KindUnquoted:
		return "Unquoted"
	case KindRgb:
		return "Rgb"
	default:
		return "Unknown"
	}
}

// Rgb holds the three channel values of an Rgb token.
type Rgb struct {
	R, G, B uint32
}

// Token is the tagged union emitted by Reader.Next.
type Token struct {
	Kind Kind

	ID  uint16
	B   bool
	U32 uint32
	I32 int32
	U64 uint64
	I64 int64

	// F32Bits/F64Bits hold the raw little-endian IEEE bytes; decoding
	// to an actual float is version-dependent and is done by
	// pkg/ck3flavor, not here.
	F32Bits [4]byte
	F64Bits [8]byte

	// Bytes holds the raw payload for Quoted/Unquoted tokens.
	Bytes []byte

	Rgb Rgb
}

// Opcodes recognized on the wire. Any opcode not in this list is an
// identifier to be resolved via the caller's token dictionary.
const (
	opEqual    = 0x01
	opOpen     = 0x03
	opClose    = 0x04
	opI32      = 0x0C
	opBool     = 0x0E
	opQuoted   = 0x0F
	opU32      = 0x14
	opUnquoted = 0x17
	opU64      = 0x167
	opI64      = 0x9C
	opF32      = 0x0D
	opF64      = 0x14D
	opRgb      = 0x243
)
