/*
Package codec encodes repository payloads for storage in a cookie.

Every codec applies the same three steps:

	value -> JSON -> compression -> base64 (URL alphabet, no padding)

The compression step is the only difference between the codecs:

  - deflate: raw DEFLATE at best compression (default)
  - zstd:    zstandard, better ratio for larger documents
  - s2:      Snappy-compatible s2 block format, fastest
  - plain:   no compression, handy to inspect a cookie by hand

Decoding never reads more than MaxDecodedSize bytes of decompressed data. All
decode failures wrap ErrMalformed so callers can treat them as absent data:

	c, _ := codec.ByName("deflate")
	text, err := c.Encode(map[string]any{"theme": "dark"})
	...
	var out map[string]any
	if err := c.Decode(text, &out); errors.Is(err, codec.ErrMalformed) {
		// start from empty data
	}
*/
package codec
