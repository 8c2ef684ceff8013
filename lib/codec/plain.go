package codec

// NewPlainCodec creates a codec that only base64 encodes the JSON document.
// Useful for debugging cookie contents.
func NewPlainCodec() (ICodec, error) {
	return &codecImpl{name: "plain", c: plainCompressor{}}, nil
}

type plainCompressor struct{}

func (plainCompressor) compress(src []byte) ([]byte, error) {
	return src, nil
}

func (plainCompressor) decompress(src []byte) ([]byte, error) {
	if len(src) > MaxDecodedSize {
		return nil, ErrPayloadTooLarge
	}
	return src, nil
}
