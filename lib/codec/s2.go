package codec

import (
	"github.com/klauspost/compress/s2"
)

// NewS2Codec creates a codec using the s2 block format.
func NewS2Codec() (ICodec, error) {
	return &codecImpl{name: "s2", c: s2Compressor{}}, nil
}

type s2Compressor struct{}

func (s2Compressor) compress(src []byte) ([]byte, error) {
	return s2.EncodeBest(nil, src), nil
}

func (s2Compressor) decompress(src []byte) ([]byte, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return nil, err
	}
	if n > MaxDecodedSize {
		return nil, ErrPayloadTooLarge
	}
	return s2.Decode(nil, src)
}
