package artifact

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Encoder appends fixed-width little-endian values to a payload.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with room for sizeHint bytes.
func NewEncoder(sizeHint int) *Encoder {
	return &Encoder{buf: make([]byte, 0, sizeHint)}
}

// Uint8 appends v.
func (e *Encoder) Uint8(v uint8) {
	e.buf = append(e.buf, v)
}

// Uint32 appends v.
func (e *Encoder) Uint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// Int32 appends v.
func (e *Encoder) Int32(v int32) {
	e.Uint32(uint32(v))
}

// Uint64 appends v.
func (e *Encoder) Uint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// Float64 appends v.
func (e *Encoder) Float64(v float64) {
	e.Uint64(math.Float64bits(v))
}

// Vector appends the three components of v.
func (e *Encoder) Vector(v r3.Vector) {
	e.Float64(v.X)
	e.Float64(v.Y)
	e.Float64(v.Z)
}

// Bytes returns the encoded payload.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Decoder reads values written by an Encoder. After the first short read every
// further read returns zero and Err reports the failure.
type Decoder struct {
	data []byte
	off  int
	err  error
}

// NewDecoder returns a decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

func (d *Decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.data)-d.off < n {
		d.err = errors.Wrapf(ErrCorrupt, "payload ended at byte %d, wanted %d more", d.off, n)
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

// Uint8 reads a uint8.
func (d *Decoder) Uint8() uint8 {
	b := d.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint32 reads a uint32.
func (d *Decoder) Uint32() uint32 {
	b := d.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Int32 reads an int32.
func (d *Decoder) Int32() int32 {
	return int32(d.Uint32())
}

// Uint64 reads a uint64.
func (d *Decoder) Uint64() uint64 {
	b := d.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Float64 reads a float64.
func (d *Decoder) Float64() float64 {
	return math.Float64frombits(d.Uint64())
}

// Vector reads three float64 components.
func (d *Decoder) Vector() r3.Vector {
	return r3.Vector{X: d.Float64(), Y: d.Float64(), Z: d.Float64()}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

// Err returns the first read error, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Finish returns the first read error, or an error if unread bytes remain.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if rem := d.Remaining(); rem != 0 {
		return errors.Wrapf(ErrCorrupt, "%d trailing bytes in payload", rem)
	}
	return nil
}
