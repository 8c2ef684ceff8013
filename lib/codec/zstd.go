package codec

import (
	"errors"

	"github.com/klauspost/compress/zstd"
)

// NewZstdCodec creates a codec using zstd. EncodeAll and DecodeAll are safe
// for concurrent use, so one encoder/decoder pair is shared by all calls.
func NewZstdCodec() (ICodec, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderCRC(false),
	)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(MaxDecodedSize),
	)
	if err != nil {
		return nil, err
	}
	return &codecImpl{name: "zstd", c: &zstdCompressor{enc: enc, dec: dec}}, nil
}

type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func (z *zstdCompressor) compress(src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, nil), nil
}

func (z *zstdCompressor) decompress(src []byte) ([]byte, error) {
	var h zstd.Header
	if err := h.Decode(src); err != nil {
		return nil, err
	}
	if h.HasFCS && h.FrameContentSize > MaxDecodedSize {
		return nil, ErrPayloadTooLarge
	}

	out, err := z.dec.DecodeAll(src, nil)
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return nil, ErrPayloadTooLarge
	}
	return out, err
}
