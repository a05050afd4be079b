// Package compresscache zstd-compresses the raw provider payloads
// written into the profile cache, trading a little CPU for a much
// smaller row on a table whose rows are almost all JSON blobs fetched
// once and read many times.
package compresscache

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	once    sync.Once
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	initErr error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	once.Do(func() {
		encoder, initErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1))
		if initErr != nil {
			return
		}
		decoder, initErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
	return encoder, decoder, initErr
}

// Compress zstd-compresses data. Safe for concurrent use.
func Compress(data []byte) ([]byte, error) {
	enc, _, err := codecs()
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

// Decompress reverses Compress. Safe for concurrent use.
func Decompress(data []byte) ([]byte, error) {
	_, dec, err := codecs()
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}
