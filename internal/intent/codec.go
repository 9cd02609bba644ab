package intent

import (
	"encoding/binary"
	"fmt"

	"github.com/bkaradzic/go-lz4"
)

// DefaultMaxDecodedSize caps the size an LZ4 payload may claim when
// LZ4Codec.MaxSize is not set.
const DefaultMaxDecodedSize = 1 << 20

// A Codec converts intents to datagram payloads and back.
type Codec interface {
	Marshal(in *Intent) ([]byte, error)
	Unmarshal(data []byte) (*Intent, error)
}

// URICodec writes intents in their textual URI form.
type URICodec struct{}

func (URICodec) Marshal(in *Intent) ([]byte, error) {
	if in == nil {
		return nil, ErrNilIntent
	}
	uri, err := in.URI()
	if err != nil {
		return nil, err
	}
	return []byte(uri), nil
}

func (URICodec) Unmarshal(data []byte) (*Intent, error) {
	return Parse(data)
}

// LZ4Codec wraps a concrete codec with LZ4 block compression. Both ends of
// an endpoint have to agree on using it.
type LZ4Codec struct {
	Codec // The concrete codec to use

	// MaxSize is the largest decompressed size accepted. Zero means
	// DefaultMaxDecodedSize.
	MaxSize int

	// AcceptPlain makes Unmarshal hand payloads that are not LZ4 blocks to
	// the wrapped codec unchanged, so raw datagrams still get through.
	AcceptPlain bool
}

func (c LZ4Codec) Marshal(in *Intent) ([]byte, error) {
	data, err := c.Codec.Marshal(in)
	if err != nil {
		return nil, err
	}
	return lz4.Encode(nil, data)
}

func (c LZ4Codec) Unmarshal(data []byte) (*Intent, error) {
	raw, err := c.decompress(data)
	if err != nil {
		if c.AcceptPlain {
			return c.Codec.Unmarshal(data)
		}
		return nil, err
	}
	return c.Codec.Unmarshal(raw)
}

// decompress checks the little-endian length header before decoding, the
// decoder allocates whatever the header claims.
func (c LZ4Codec) decompress(data []byte) ([]byte, error) {
	if len(data) <= 4 {
		return nil, fmt.Errorf("%w: lz4 block too short", ErrMalformed)
	}

	limit := c.MaxSize
	if limit <= 0 {
		limit = DefaultMaxDecodedSize
	}
	size := binary.LittleEndian.Uint32(data)
	if size == 0 || uint64(size) > uint64(limit) {
		return nil, fmt.Errorf("%w: lz4 block claims %d bytes", ErrMalformed, size)
	}

	raw, err := lz4.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) != int(size) {
		return nil, fmt.Errorf("%w: lz4 block decoded to %d of %d bytes", ErrMalformed, len(raw), size)
	}
	return raw, nil
}

// DefaultCodec is used when no codec is configured.
func DefaultCodec() Codec {
	return URICodec{}
}
