package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// NewDeflateCodec creates a codec using raw DEFLATE at best compression.
// This is the default, cookies are small and the ratio matters more than speed.
func NewDeflateCodec() (ICodec, error) {
	return &codecImpl{name: "deflate", c: deflateCompressor{}}, nil
}

type deflateCompressor struct{}

func (deflateCompressor) compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (deflateCompressor) decompress(src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, MaxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxDecodedSize {
		return nil, ErrPayloadTooLarge
	}
	return out, nil
}
