package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ICodec turns a JSON-serializable value into a cookie-safe text payload and back.
type ICodec interface {
	// Encode serializes v as JSON, compresses it and returns the transport-safe text form.
	Encode(v any) (string, error)
	// Decode reverses Encode and unmarshals the JSON document into v.
	// Any malformed input results in an error wrapping ErrMalformed.
	Decode(text string, v any) error
	// Name returns the identifier used by ByName.
	Name() string
}

// MaxDecodedSize is the upper bound for a decompressed payload.
const MaxDecodedSize = 1 << 20

var (
	// ErrMalformed is returned when a payload cannot be decoded.
	ErrMalformed = errors.New("codec: malformed payload")
	// ErrPayloadTooLarge is returned when a payload decompresses to more than MaxDecodedSize bytes.
	ErrPayloadTooLarge = errors.New("codec: decoded payload too large")
	// ErrUnknownCodec is returned by ByName for unregistered names.
	ErrUnknownCodec = errors.New("codec: unknown codec")
)

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// Default is the name of the codec used when none is configured.
const Default = "deflate"

var factories = map[string]func() (ICodec, error){
	"deflate": NewDeflateCodec,
	"zstd":    NewZstdCodec,
	"s2":      NewS2Codec,
	"plain":   NewPlainCodec,
}

// ByName returns a new codec for the given name. The lookup is case-insensitive,
// an empty name selects Default.
func ByName(name string) (ICodec, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = Default
	}
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (must be one of %s)", ErrUnknownCodec, name, strings.Join(Names(), ", "))
	}
	return factory()
}

// Names returns the names of all available codecs in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
