package msgpack

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
)

// CompatibilityFlags controls which MessagePack dialect a Packer targets.
type CompatibilityFlags uint8

const (
	// PackBinaryAsRaw suppresses the bin family: []byte values are written
	// with a string header instead, for peers that predate bin8/16/32.
	PackBinaryAsRaw CompatibilityFlags = 1 << iota
	// PackRawCompatible suppresses str8: string headers never use the 0xd9
	// form, falling back straight to str16 past the fixstr range.
	PackRawCompatible
)

// classic reports whether PackBinaryAsRaw, the bit that defines "classic
// mode" (predates the bin family), is set. Classic mode also suppresses str8.
func (f CompatibilityFlags) classic() bool {
	return f&PackBinaryAsRaw != 0
}

// Packer is a forward-only writer over the MessagePack byte format.
// It is stateless apart from its destination sink and compatibility flags;
// two Packers sharing a sink is the caller's responsibility to serialize.
type Packer struct {
	w     io.Writer
	flags CompatibilityFlags
	x     [9]byte
}

// NewPacker returns a Packer writing to w with the given compatibility flags.
func NewPacker(w io.Writer, flags CompatibilityFlags) *Packer {
	return &Packer{w: w, flags: flags}
}

func (p *Packer) writeb(b []byte) error {
	n, err := p.w.Write(b)
	if err != nil {
		return errors.Wrapf(ErrIO, "write: %v", err)
	}
	if n != len(b) {
		return errors.Wrapf(ErrIO, "short write: expected %d bytes, wrote %d", len(b), n)
	}
	return nil
}

// PackNil writes a nil token.
func (p *Packer) PackNil() error {
	p.x[0] = tagNil
	return p.writeb(p.x[:1])
}

// PackBool writes a boolean token.
func (p *Packer) PackBool(b bool) error {
	if b {
		p.x[0] = tagTrue
	} else {
		p.x[0] = tagFalse
	}
	return p.writeb(p.x[:1])
}

// PackInt writes i as the narrowest signed MessagePack integer form that
// represents it.
func (p *Packer) PackInt(i int64) error {
	switch {
	case i >= 0:
		return p.PackUint(uint64(i))
	case i >= fixIntMin:
		p.x[0] = byte(i)
		return p.writeb(p.x[:1])
	case i >= math.MinInt8:
		p.x[0], p.x[1] = tagInt8, byte(i)
		return p.writeb(p.x[:2])
	case i >= math.MinInt16:
		p.x[0] = tagInt16
		binary.BigEndian.PutUint16(p.x[1:3], uint16(i))
		return p.writeb(p.x[:3])
	case i >= math.MinInt32:
		p.x[0] = tagInt32
		binary.BigEndian.PutUint32(p.x[1:5], uint32(i))
		return p.writeb(p.x[:5])
	default:
		p.x[0] = tagInt64
		binary.BigEndian.PutUint64(p.x[1:9], uint64(i))
		return p.writeb(p.x[:9])
	}
}

// PackUint writes i as the narrowest unsigned MessagePack integer form that
// represents it.
func (p *Packer) PackUint(i uint64) error {
	switch {
	case i <= tagPosFixIntMax:
		p.x[0] = byte(i)
		return p.writeb(p.x[:1])
	case i <= math.MaxUint8:
		p.x[0], p.x[1] = tagUint8, byte(i)
		return p.writeb(p.x[:2])
	case i <= math.MaxUint16:
		p.x[0] = tagUint16
		binary.BigEndian.PutUint16(p.x[1:3], uint16(i))
		return p.writeb(p.x[:3])
	case i <= math.MaxUint32:
		p.x[0] = tagUint32
		binary.BigEndian.PutUint32(p.x[1:5], uint32(i))
		return p.writeb(p.x[:5])
	default:
		p.x[0] = tagUint64
		binary.BigEndian.PutUint64(p.x[1:9], i)
		return p.writeb(p.x[:9])
	}
}

// PackFloat32 writes a 32-bit float token.
func (p *Packer) PackFloat32(f float32) error {
	p.x[0] = tagFloat32
	binary.BigEndian.PutUint32(p.x[1:5], math.Float32bits(f))
	return p.writeb(p.x[:5])
}

// PackFloat64 writes a 64-bit float token.
func (p *Packer) PackFloat64(f float64) error {
	p.x[0] = tagFloat64
	binary.BigEndian.PutUint64(p.x[1:9], math.Float64bits(f))
	return p.writeb(p.x[:9])
}

func (p *Packer) writeStrHeader(n int) error {
	switch {
	case n < 32:
		p.x[0] = byte(tagFixStrMin | n)
		return p.writeb(p.x[:1])
	case n <= math.MaxUint8 && !p.flags.classic() && p.flags&PackRawCompatible == 0:
		p.x[0], p.x[1] = tagStr8, byte(n)
		return p.writeb(p.x[:2])
	case n <= math.MaxUint16:
		p.x[0] = tagStr16
		binary.BigEndian.PutUint16(p.x[1:3], uint16(n))
		return p.writeb(p.x[:3])
	default:
		p.x[0] = tagStr32
		binary.BigEndian.PutUint32(p.x[1:5], uint32(n))
		return p.writeb(p.x[:5])
	}
}

// PackString writes text as UTF-8 with a string header.
func (p *Packer) PackString(text string) error {
	if err := p.writeStrHeader(len(text)); err != nil {
		return err
	}
	if len(text) == 0 {
		return nil
	}
	n, err := io.WriteString(p.w, text)
	if err != nil {
		return errors.Wrapf(ErrIO, "write string: %v", err)
	}
	if n != len(text) {
		return errors.Wrapf(ErrIO, "short write: expected %d bytes, wrote %d", len(text), n)
	}
	return nil
}

// PackBinary writes bs with a bin header, or a string header in classic
// compatibility mode.
func (p *Packer) PackBinary(bs []byte) error {
	if p.flags.classic() {
		return p.writeRawFallback(bs)
	}
	n := len(bs)
	switch {
	case n <= math.MaxUint8:
		p.x[0], p.x[1] = tagBin8, byte(n)
		if err := p.writeb(p.x[:2]); err != nil {
			return err
		}
	case n <= math.MaxUint16:
		p.x[0] = tagBin16
		binary.BigEndian.PutUint16(p.x[1:3], uint16(n))
		if err := p.writeb(p.x[:3]); err != nil {
			return err
		}
	default:
		p.x[0] = tagBin32
		binary.BigEndian.PutUint32(p.x[1:5], uint32(n))
		if err := p.writeb(p.x[:5]); err != nil {
			return err
		}
	}
	if n == 0 {
		return nil
	}
	return p.writeb(bs)
}

func (p *Packer) writeRawFallback(bs []byte) error {
	if err := p.writeStrHeader(len(bs)); err != nil {
		return err
	}
	if len(bs) == 0 {
		return nil
	}
	return p.writeb(bs)
}

// PackArrayHeader writes an array header declaring n following elements.
// The caller must emit exactly n values afterward.
func (p *Packer) PackArrayHeader(n int) error {
	if n < 0 {
		return errors.Wrapf(ErrTooLargeCollection, "negative array length %d", n)
	}
	switch {
	case n < 16:
		p.x[0] = byte(tagFixArrayMin | n)
		return p.writeb(p.x[:1])
	case n <= math.MaxUint16:
		p.x[0] = tagArray16
		binary.BigEndian.PutUint16(p.x[1:3], uint16(n))
		return p.writeb(p.x[:3])
	case uint64(n) <= math.MaxUint32:
		p.x[0] = tagArray32
		binary.BigEndian.PutUint32(p.x[1:5], uint32(n))
		return p.writeb(p.x[:5])
	default:
		return errors.Wrapf(ErrTooLargeCollection, "array length %d exceeds wire limit", n)
	}
}

// PackMapHeader writes a map header declaring n following key/value pairs.
// The caller must emit exactly 2n values afterward.
func (p *Packer) PackMapHeader(n int) error {
	if n < 0 {
		return errors.Wrapf(ErrTooLargeCollection, "negative map length %d", n)
	}
	switch {
	case n < 16:
		p.x[0] = byte(tagFixMapMin | n)
		return p.writeb(p.x[:1])
	case n <= math.MaxUint16:
		p.x[0] = tagMap16
		binary.BigEndian.PutUint16(p.x[1:3], uint16(n))
		return p.writeb(p.x[:3])
	case uint64(n) <= math.MaxUint32:
		p.x[0] = tagMap32
		binary.BigEndian.PutUint32(p.x[1:5], uint32(n))
		return p.writeb(p.x[:5])
	default:
		return errors.Wrapf(ErrTooLargeCollection, "map length %d exceeds wire limit", n)
	}
}

// PackExtension writes an extension token with the given type byte and payload.
func (p *Packer) PackExtension(typeByte int8, bs []byte) error {
	n := len(bs)
	switch n {
	case 1:
		p.x[0] = tagFixExt1
	case 2:
		p.x[0] = tagFixExt2
	case 4:
		p.x[0] = tagFixExt4
	case 8:
		p.x[0] = tagFixExt8
	case 16:
		p.x[0] = tagFixExt16
	default:
		switch {
		case n <= math.MaxUint8:
			p.x[0], p.x[1] = tagExt8, byte(n)
			if err := p.writeb(p.x[:2]); err != nil {
				return err
			}
			p.x[0] = byte(typeByte)
			if err := p.writeb(p.x[:1]); err != nil {
				return err
			}
			return p.writeb(bs)
		case n <= math.MaxUint16:
			p.x[0] = tagExt16
			binary.BigEndian.PutUint16(p.x[1:3], uint16(n))
			if err := p.writeb(p.x[:3]); err != nil {
				return err
			}
			p.x[0] = byte(typeByte)
			if err := p.writeb(p.x[:1]); err != nil {
				return err
			}
			return p.writeb(bs)
		default:
			p.x[0] = tagExt32
			binary.BigEndian.PutUint32(p.x[1:5], uint32(n))
			if err := p.writeb(p.x[:5]); err != nil {
				return err
			}
			p.x[0] = byte(typeByte)
			if err := p.writeb(p.x[:1]); err != nil {
				return err
			}
			return p.writeb(bs)
		}
	}
	if err := p.writeb(p.x[:1]); err != nil {
		return err
	}
	p.x[0] = byte(typeByte)
	if err := p.writeb(p.x[:1]); err != nil {
		return err
	}
	return p.writeb(bs)
}
