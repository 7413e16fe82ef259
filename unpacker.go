package msgpack

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
)

// Token is the tagged value exposed by Unpacker after a successful Read.
// For a container header it carries only Length (the declared item count);
// the container's contents are read separately, either by driving a
// serializer over the cursor directly or via ReadSubtree.
type Token struct {
	Kind Kind

	Bool    bool
	Uint    uint64
	Int     int64
	Float32 float32
	Float64 float64
	Str     *MessagePackString
	Bin     []byte
	ExtType int8
	ExtData []byte

	// Length is the declared element count for KindArray/KindMap headers.
	Length int
}

// Unpacker is a pull-based, cursor-oriented reader over the MessagePack byte
// format. The zero value is not usable; construct with NewUnpacker.
type Unpacker struct {
	r    io.Reader
	x    [9]byte
	last Token

	// itemsCount/itemsRead bound a subtree scope. A root Unpacker (returned
	// by NewUnpacker) has itemsCount < 0, meaning unbounded: Read may be
	// called until the underlying source is exhausted.
	itemsCount int
	itemsRead  int

	// childOpen is set while a subtree reader obtained from this Unpacker
	// has not yet been closed; the parent may not be read from until then.
	childOpen bool
	closed    bool

	// parent is set on a subtree Unpacker returned by ReadSubtree; Close
	// resumes it.
	parent *Unpacker
}

// NewUnpacker returns a root Unpacker reading from r.
func NewUnpacker(r io.Reader) *Unpacker {
	return &Unpacker{r: r, itemsCount: -1}
}

// LastReadData returns the token produced by the most recent successful
// Read or MoveToNextEntry call.
func (u *Unpacker) LastReadData() Token { return u.last }

// IsArrayHeader reports whether the last-read token is an array header.
func (u *Unpacker) IsArrayHeader() bool { return u.last.Kind == KindArray }

// IsMapHeader reports whether the last-read token is a map header.
func (u *Unpacker) IsMapHeader() bool { return u.last.Kind == KindMap }

// ItemsCount returns the declared length of the last-read container header.
func (u *Unpacker) ItemsCount() int { return u.last.Length }

func (u *Unpacker) readFull(n int) ([]byte, error) {
	buf := u.x[:n]
	if _, err := io.ReadFull(u.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errEndOfStreamf("expected %d more bytes: %v", n, err)
		}
		return nil, errors.Wrapf(ErrIO, "read: %v", err)
	}
	return buf, nil
}

func (u *Unpacker) readBytes(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(u.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errEndOfStreamf("expected %d more raw bytes: %v", n, err)
		}
		return nil, errors.Wrapf(ErrIO, "read: %v", err)
	}
	return buf, nil
}

// Read advances the cursor to the next scalar value or container header,
// populating LastReadData. It returns false (with a nil error) only when
// the underlying source has no more bytes and none were expected — i.e. a
// clean end of stream at a token boundary.
func (u *Unpacker) Read() (bool, error) {
	if u.childOpen {
		return false, errors.Newf("msgpack: parent unpacker read while a subtree reader is open")
	}
	if u.itemsCount >= 0 && u.itemsRead >= u.itemsCount {
		return false, errors.Wrapf(ErrSubtreeOverconsumed, "subtree declared %d items, already read %d", u.itemsCount, u.itemsRead)
	}

	var bd [1]byte
	n, err := io.ReadFull(u.r, bd[:])
	if err != nil {
		if n == 0 && (errors.Is(err, io.EOF)) {
			if u.itemsCount < 0 {
				return false, nil
			}
			return false, errEndOfStreamf("subtree ended early: expected %d items, read %d", u.itemsCount, u.itemsRead)
		}
		return false, errors.Wrapf(ErrIO, "read descriptor byte: %v", err)
	}

	tok, err := u.readValueAfterTag(bd[0])
	if err != nil {
		return false, err
	}
	u.last = tok
	u.itemsRead++
	return true, nil
}

// MoveToNextEntry is Read, named for use while iterating the declared items
// of a subtree; scalar elements populate LastReadData directly, nested
// container elements leave the cursor positioned at that container's own
// header for the caller to descend into (e.g. via a further ReadSubtree).
func (u *Unpacker) MoveToNextEntry() (bool, error) { return u.Read() }

func (u *Unpacker) readValueAfterTag(bd byte) (Token, error) {
	switch {
	case bd <= tagPosFixIntMax:
		return Token{Kind: KindUint, Uint: uint64(bd)}, nil
	case bd >= tagNegFixIntMin:
		return Token{Kind: KindInt, Int: int64(int8(bd))}, nil
	case bd >= tagFixMapMin && bd <= tagFixMapMax:
		return Token{Kind: KindMap, Length: int(bd & 0x0f)}, nil
	case bd >= tagFixArrayMin && bd <= tagFixArrayMax:
		return Token{Kind: KindArray, Length: int(bd & 0x0f)}, nil
	case bd >= tagFixStrMin && bd <= tagFixStrMax:
		return u.readStringToken(int(bd & 0x1f))
	}

	switch bd {
	case tagNil:
		return Token{Kind: KindNil}, nil
	case tagFalse:
		return Token{Kind: KindBool, Bool: false}, nil
	case tagTrue:
		return Token{Kind: KindBool, Bool: true}, nil

	case tagBin8:
		b, err := u.readFull(1)
		if err != nil {
			return Token{}, err
		}
		return u.readBinaryToken(int(b[0]))
	case tagBin16:
		b, err := u.readFull(2)
		if err != nil {
			return Token{}, err
		}
		return u.readBinaryToken(int(binary.BigEndian.Uint16(b)))
	case tagBin32:
		b, err := u.readFull(4)
		if err != nil {
			return Token{}, err
		}
		return u.readBinaryToken(int(binary.BigEndian.Uint32(b)))

	case tagExt8, tagExt16, tagExt32, tagFixExt1, tagFixExt2, tagFixExt4, tagFixExt8, tagFixExt16:
		return u.readExtToken(bd)

	case tagFloat32:
		b, err := u.readFull(4)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindFloat32, Float32: math.Float32frombits(binary.BigEndian.Uint32(b))}, nil
	case tagFloat64:
		b, err := u.readFull(8)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindFloat64, Float64: math.Float64frombits(binary.BigEndian.Uint64(b))}, nil

	case tagUint8:
		b, err := u.readFull(1)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindUint, Uint: uint64(b[0])}, nil
	case tagUint16:
		b, err := u.readFull(2)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindUint, Uint: uint64(binary.BigEndian.Uint16(b))}, nil
	case tagUint32:
		b, err := u.readFull(4)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindUint, Uint: uint64(binary.BigEndian.Uint32(b))}, nil
	case tagUint64:
		b, err := u.readFull(8)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindUint, Uint: binary.BigEndian.Uint64(b)}, nil

	case tagInt8:
		b, err := u.readFull(1)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindInt, Int: int64(int8(b[0]))}, nil
	case tagInt16:
		b, err := u.readFull(2)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindInt, Int: int64(int16(binary.BigEndian.Uint16(b)))}, nil
	case tagInt32:
		b, err := u.readFull(4)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindInt, Int: int64(int32(binary.BigEndian.Uint32(b)))}, nil
	case tagInt64:
		b, err := u.readFull(8)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindInt, Int: int64(binary.BigEndian.Uint64(b))}, nil

	case tagStr8:
		b, err := u.readFull(1)
		if err != nil {
			return Token{}, err
		}
		return u.readStringToken(int(b[0]))
	case tagStr16:
		b, err := u.readFull(2)
		if err != nil {
			return Token{}, err
		}
		return u.readStringToken(int(binary.BigEndian.Uint16(b)))
	case tagStr32:
		b, err := u.readFull(4)
		if err != nil {
			return Token{}, err
		}
		return u.readStringToken(int(binary.BigEndian.Uint32(b)))

	case tagArray16:
		b, err := u.readFull(2)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindArray, Length: int(binary.BigEndian.Uint16(b))}, nil
	case tagArray32:
		b, err := u.readFull(4)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindArray, Length: int(binary.BigEndian.Uint32(b))}, nil

	case tagMap16:
		b, err := u.readFull(2)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindMap, Length: int(binary.BigEndian.Uint16(b))}, nil
	case tagMap32:
		b, err := u.readFull(4)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindMap, Length: int(binary.BigEndian.Uint32(b))}, nil

	case tagNeverUsed:
		return Token{}, errInvalidStreamf("descriptor byte 0xc1 is reserved and never used")
	default:
		return Token{}, errInvalidStreamf("unrecognized descriptor byte 0x%02x", bd)
	}
}

func (u *Unpacker) readStringToken(n int) (Token, error) {
	bs, err := u.readBytes(n)
	if err != nil {
		return Token{}, err
	}
	return Token{Kind: KindString, Str: NewMessagePackStringFromBytes(bs)}, nil
}

func (u *Unpacker) readBinaryToken(n int) (Token, error) {
	bs, err := u.readBytes(n)
	if err != nil {
		return Token{}, err
	}
	return Token{Kind: KindBinary, Bin: bs}, nil
}

func (u *Unpacker) readExtToken(bd byte) (Token, error) {
	var n int
	switch bd {
	case tagFixExt1:
		n = 1
	case tagFixExt2:
		n = 2
	case tagFixExt4:
		n = 4
	case tagFixExt8:
		n = 8
	case tagFixExt16:
		n = 16
	case tagExt8:
		b, err := u.readFull(1)
		if err != nil {
			return Token{}, err
		}
		n = int(b[0])
	case tagExt16:
		b, err := u.readFull(2)
		if err != nil {
			return Token{}, err
		}
		n = int(binary.BigEndian.Uint16(b))
	case tagExt32:
		b, err := u.readFull(4)
		if err != nil {
			return Token{}, err
		}
		n = int(binary.BigEndian.Uint32(b))
	}
	tb, err := u.readFull(1)
	if err != nil {
		return Token{}, err
	}
	typeByte := int8(tb[0])
	data, err := u.readBytes(n)
	if err != nil {
		return Token{}, err
	}
	return Token{Kind: KindExtension, ExtType: typeByte, ExtData: data}, nil
}

// ReadSubtree returns a scoped child Unpacker bounded to the contents of the
// container header most recently read into LastReadData. The parent is
// paused (any Read on it fails) until the child is Closed; closing skips
// any of the subtree's declared items the caller did not consume, and it is
// an error for the caller to have consumed more than were declared.
func (u *Unpacker) ReadSubtree() (*Unpacker, error) {
	if u.childOpen {
		return nil, errors.Newf("msgpack: subtree already open on this unpacker")
	}
	var n int
	switch u.last.Kind {
	case KindArray:
		n = u.last.Length
	case KindMap:
		n = u.last.Length * 2
	default:
		return nil, errTypeMismatchf("ReadSubtree: last-read token is %v, not a container header", u.last.Kind)
	}
	u.childOpen = true
	return &Unpacker{r: u.r, itemsCount: n, parent: u}, nil
}

func (u *Unpacker) resumeParent() {
	if u.parent != nil {
		u.parent.childOpen = false
	}
}

// Close skips any unread declared items and resumes the parent unpacker, if
// any. It is idempotent.
func (u *Unpacker) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	for u.itemsCount >= 0 && u.itemsRead < u.itemsCount {
		if err := u.skipOne(); err != nil {
			u.resumeParent()
			return err
		}
	}
	u.resumeParent()
	return nil
}

// skipOne consumes exactly one complete value (recursively skipping a
// container's declared contents) without materializing it.
func (u *Unpacker) skipOne() error {
	ok, err := u.Read()
	if err != nil {
		return err
	}
	if !ok {
		return errEndOfStreamf("skipOne: no value available")
	}
	switch u.last.Kind {
	case KindArray, KindMap:
		sub, err := u.ReadSubtree()
		if err != nil {
			return err
		}
		return sub.Close()
	default:
		return nil
	}
}
