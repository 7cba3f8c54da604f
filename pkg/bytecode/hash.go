package bytecode

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/chazu/sparrow/pkg/value"
)

// ---------------------------------------------------------------------------
// Content hashing
//
// Encoding conventions:
//   - First byte: HashVersion
//   - Integers: big-endian fixed-width
//   - Floats: IEEE 754 bits, big-endian 8B
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Constants: one tag byte, then the payload
//
// The source map is not hashed: two chunks that execute identically hash
// identically wherever they came from.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the hashed serialization.
// Bumping it invalidates every stored chunk hash.
const HashVersion byte = 1

// Constant tags. These are frozen; add new ones, never renumber.
const (
	tagUnit    byte = 0x01
	tagNumber  byte = 0x02
	tagString  byte = 0x03
	tagBoolean byte = 0x04
)

// Hash returns the SHA-256 content hash of the chunk's code, constant pool
// and local table.
func (c *Chunk) Hash() [32]byte {
	s := &hashWriter{buf: make([]byte, 0, 64+len(c.Code))}
	s.writeByte(HashVersion)

	s.writeUint32(uint32(len(c.Code)))
	s.buf = append(s.buf, c.Code...)

	s.writeUint32(uint32(len(c.Constants)))
	for _, k := range c.Constants {
		s.writeConstant(k)
	}

	s.writeUint32(uint32(len(c.Locals)))
	for _, l := range c.Locals {
		s.writeString(l.Name)
		s.writeUint32(l.Scope)
	}

	return sha256.Sum256(s.buf)
}

type hashWriter struct {
	buf []byte
}

func (s *hashWriter) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *hashWriter) writeUint32(v uint32) {
	s.buf = binary.BigEndian.AppendUint32(s.buf, v)
}

func (s *hashWriter) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *hashWriter) writeConstant(d value.Data) {
	switch d.Kind() {
	case value.KindNumber:
		s.writeByte(tagNumber)
		s.buf = binary.BigEndian.AppendUint64(s.buf, math.Float64bits(d.AsNumber()))
	case value.KindString:
		s.writeByte(tagString)
		s.writeString(d.AsString())
	case value.KindBoolean:
		s.writeByte(tagBoolean)
		if d.AsBoolean() {
			s.writeByte(1)
		} else {
			s.writeByte(0)
		}
	default:
		s.writeByte(tagUnit)
	}
}
