// Package compress frames payloads with a one byte codec tag followed by the
// codec's block encoding.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

type Codec byte

const (
	None Codec = iota
	Snappy
	LZ4
)

// MaxDecodedSize bounds the size a frame may claim to decode to.
const MaxDecodedSize = 1 << 30

var (
	ErrUnknownCodec = errors.New("unknown codec")
	ErrCorrupt      = errors.New("corrupt frame")
	ErrTooLarge     = errors.New("frame too large")
)

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	}
	return fmt.Sprintf("codec(%d)", byte(c))
}

func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return None, nil
	case "snappy":
		return Snappy, nil
	case "lz4":
		return LZ4, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

var hashTables = sync.Pool{New: func() interface{} {
	ht := make([]int, 1<<16)
	return &ht
}}

// Encode compresses src into a new frame. LZ4 frames of incompressible data
// are stored uncompressed.
func Encode(c Codec, src []byte) ([]byte, error) {
	if len(src) == 0 && c.valid() {
		return frame(None, src), nil
	}
	switch c {
	case None:
		return frame(None, src), nil
	case Snappy:
		out := make([]byte, 1, 1+snappy.MaxEncodedLen(len(src)))
		out[0] = byte(Snappy)
		return append(out, snappy.Encode(nil, src)...), nil
	case LZ4:
		out := make([]byte, 1+binary.MaxVarintLen64+lz4.CompressBlockBound(len(src)))
		out[0] = byte(LZ4)
		hdr := 1 + binary.PutUvarint(out[1:], uint64(len(src)))
		ht := hashTables.Get().(*[]int)
		n, err := lz4.CompressBlock(src, out[hdr:], *ht)
		hashTables.Put(ht)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		if n == 0 {
			return frame(None, src), nil
		}
		return out[:hdr+n], nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, byte(c))
}

func (c Codec) valid() bool {
	return c == None || c == Snappy || c == LZ4
}

func frame(c Codec, src []byte) []byte {
	out := make([]byte, 1+len(src))
	out[0] = byte(c)
	copy(out[1:], src)
	return out
}

// Decode reverses Encode.
func Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrCorrupt
	}
	body := data[1:]
	switch Codec(data[0]) {
	case None:
		return append([]byte{}, body...), nil
	case Snappy:
		n, err := snappy.DecodedLen(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if n > MaxDecodedSize {
			return nil, ErrTooLarge
		}
		out, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return out, nil
	case LZ4:
		size, hdr := binary.Uvarint(body)
		if hdr <= 0 {
			return nil, ErrCorrupt
		}
		if size > MaxDecodedSize {
			return nil, ErrTooLarge
		}
		if size == 0 {
			return []byte{}, nil
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body[hdr:], out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint64(n) != size {
			return nil, ErrCorrupt
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, data[0])
}
