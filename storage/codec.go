package storage

import (
	"compress/gzip"
	"io"
)

// Codec compresses artifacts at the storage boundary. Fetch logic hands raw
// bytes to the run directory and never sees the encoding, so tests can
// exercise the fetch path against uncompressed fixtures.
type Codec interface {
	// Extension is appended to artifact filenames, e.g. ".gz".
	Extension() string
	// Compress wraps w; the caller must Close the returned writer to flush.
	Compress(w io.Writer) io.WriteCloser
	// Decompress wraps r for reading back an artifact.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// GzipCodec is the production codec.
type GzipCodec struct{}

func (GzipCodec) Extension() string {
	return ".gz"
}

func (GzipCodec) Compress(w io.Writer) io.WriteCloser {
	return gzip.NewWriter(w)
}

func (GzipCodec) Decompress(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}
