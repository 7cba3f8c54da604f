package bytecode

import (
	"encoding/binary"
	"errors"
)

// Operands are unsigned LEB128 varints: seven payload bits per byte, least
// significant group first, high bit set on every byte but the last.

// MaxOperandLen is the longest encoding of a uint64 operand.
const MaxOperandLen = binary.MaxVarintLen64

var (
	// ErrTruncatedOperand is returned when the code ends inside an operand.
	ErrTruncatedOperand = errors.New("truncated operand")

	// ErrOperandOverflow is returned when an operand does not fit in 64 bits.
	ErrOperandOverflow = errors.New("operand overflows uint64")
)

// AppendOperand appends the encoding of v to code.
func AppendOperand(code []byte, v uint64) []byte {
	return binary.AppendUvarint(code, v)
}

// OperandLen returns the number of bytes AppendOperand uses for v.
func OperandLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// DecodeOperand decodes the operand starting at code[ip]. It returns the
// value and the offset of the first byte after the encoding. The decoder
// never reads past len(code) and never moves backwards.
func DecodeOperand(code []byte, ip int) (uint64, int, error) {
	if ip < 0 || ip >= len(code) {
		return 0, ip, ErrTruncatedOperand
	}
	v, n := binary.Uvarint(code[ip:])
	switch {
	case n == 0:
		return 0, ip, ErrTruncatedOperand
	case n < 0:
		return 0, ip, ErrOperandOverflow
	}
	return v, ip + n, nil
}
