// Package shortvec implements the compact-u16 length prefix used by the
// Solana wire format: 7 bits per byte, least significant group first, with
// the high bit set on every byte but the last.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// MaxEncodedLen is the longest valid encoding, in bytes.
const MaxEncodedLen = 3

var (
	ErrLenTooLarge  = errors.Errorf("shortvec: len exceeds %d", math.MaxUint16)
	ErrInvalidBytes = errors.New("shortvec: invalid encoding")
)

// AppendLen appends the encoding of n to dst.
func AppendLen(dst []byte, n int) ([]byte, error) {
	if n < 0 || n > math.MaxUint16 {
		return dst, ErrLenTooLarge
	}

	for n >= 0x80 {
		dst = append(dst, byte(n&0x7f)|0x80)
		n >>= 7
	}
	return append(dst, byte(n)), nil
}

// EncodeLen writes the encoding of n to w and returns the number of bytes
// written.
func EncodeLen(w io.Writer, n int) (int, error) {
	var buf [MaxEncodedLen]byte
	encoded, err := AppendLen(buf[:0], n)
	if err != nil {
		return 0, err
	}
	return w.Write(encoded)
}

// DecodeLen reads an encoded len from r. Encodings longer than
// MaxEncodedLen, values above math.MaxUint16 and non-canonical encodings
// with a trailing zero group are rejected.
func DecodeLen(r io.ByteReader) (int, error) {
	var n int
	for i := 0; i < MaxEncodedLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		n |= int(b&0x7f) << (7 * i)
		if b&0x80 != 0 {
			continue
		}

		if i > 0 && b == 0 {
			return 0, ErrInvalidBytes
		}
		if n > math.MaxUint16 {
			return 0, ErrLenTooLarge
		}
		return n, nil
	}
	return 0, ErrInvalidBytes
}
