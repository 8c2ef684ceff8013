package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("codec")

// textEncoding is safe for cookie values without further escaping.
var textEncoding = base64.RawURLEncoding

// compressor is the only part that differs between the codecs
type compressor interface {
	compress(src []byte) ([]byte, error)
	decompress(src []byte) ([]byte, error)
}

// codecImpl implements ICodec on top of a compressor
type codecImpl struct {
	name string
	c    compressor
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (c *codecImpl) Name() string {
	return c.name
}

func (c *codecImpl) Encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("codec %s: marshal: %w", c.name, err)
	}
	compressed, err := c.c.compress(raw)
	if err != nil {
		return "", fmt.Errorf("codec %s: compress: %w", c.name, err)
	}
	return textEncoding.EncodeToString(compressed), nil
}

func (c *codecImpl) Decode(text string, v any) error {
	compressed, err := textEncoding.DecodeString(text)
	if err != nil {
		return fmt.Errorf("%w: %s: text encoding: %v", ErrMalformed, c.name, err)
	}
	raw, err := c.c.decompress(compressed)
	if err != nil {
		log.Debugf("%s: could not decompress %d byte payload: %v", c.name, len(compressed), err)
		return fmt.Errorf("%w: %s: %w", ErrMalformed, c.name, err)
	}
	if len(raw) > MaxDecodedSize {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, c.name, ErrPayloadTooLarge)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: json: %v", ErrMalformed, c.name, err)
	}
	return nil
}
