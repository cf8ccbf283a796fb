package content

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the payload compression.
type Codec uint8

const (
	// CodecNone stores payloads as is.
	CodecNone Codec = 0
	// CodecLZ4 favours speed.
	CodecLZ4 Codec = 1
	// CodecZSTD favours ratio.
	CodecZSTD Codec = 2
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

const frameHeaderSize = 5

// Payloads below this size are never compressed.
const minCompressSize = 64

var (
	zstdEncoderPool = sync.Pool{New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	}}
	zstdDecoderPool = sync.Pool{New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	}}
)

// encodeFrame compresses data with c, falling back to CodecNone when the
// result is not at least 10% smaller.
func encodeFrame(data []byte, c Codec) ([]byte, error) {
	used := CodecNone
	body := data

	if len(data) >= minCompressSize {
		var (
			compressed []byte
			err        error
		)

		switch c {
		case CodecLZ4:
			compressed, err = compressLZ4(data)
		case CodecZSTD:
			enc := zstdEncoderPool.Get().(*zstd.Encoder)
			compressed = enc.EncodeAll(data, nil)
			zstdEncoderPool.Put(enc)
		}

		if err != nil {
			return nil, err
		}

		if len(compressed) > 0 && float64(len(compressed)) <= float64(len(data))*0.9 {
			used = c
			body = compressed
		}
	}

	out := make([]byte, frameHeaderSize+len(body))
	out[0] = byte(used)
	binary.LittleEndian.PutUint32(out[1:5], uint32(len(data)))
	copy(out[frameHeaderSize:], body)

	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, err
	}

	// n == 0 means incompressible.
	return buf[:n], nil
}

// decodeFrame reverses encodeFrame.
func decodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, fmt.Errorf("%w: frame of %d bytes", ErrCorrupt, len(frame))
	}

	codec := Codec(frame[0])
	size := binary.LittleEndian.Uint32(frame[1:5])
	body := frame[frameHeaderSize:]

	switch codec {
	case CodecNone:
		if uint32(len(body)) != size {
			return nil, fmt.Errorf("%w: raw frame length %d, header %d", ErrCorrupt, len(body), size)
		}
		return body, nil

	case CodecLZ4:
		out := make([]byte, size)

		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}

		if uint32(n) != size {
			return nil, fmt.Errorf("%w: lz4 length %d, header %d", ErrCorrupt, n, size)
		}

		return out, nil

	case CodecZSTD:
		dec := zstdDecoderPool.Get().(*zstd.Decoder)
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}

		if uint32(len(out)) != size {
			return nil, fmt.Errorf("%w: zstd length %d, header %d", ErrCorrupt, len(out), size)
		}

		return out, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
	}
}
