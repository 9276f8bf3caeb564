// Package checksum computes content digests used as object ETags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Writer hashes everything written to it.
type Writer struct {
	h hash.Hash
}

// NewWriter returns a SHA-256 Writer.
func NewWriter() *Writer {
	return &Writer{h: sha256.New()}
}

func (w *Writer) Write(p []byte) (int, error) {
	return w.h.Write(p)
}

// Sum returns the hex digest of the bytes written so far.
func (w *Writer) Sum() string {
	return hex.EncodeToString(w.h.Sum(nil))
}

// SumReader drains r and returns its hex digest.
func SumReader(r io.Reader) (string, error) {
	w := NewWriter()
	if _, err := io.Copy(w, r); err != nil {
		return "", err
	}
	return w.Sum(), nil
}
