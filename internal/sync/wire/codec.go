// Package wire implements the sync wire format: positional JSON tuples
// per entity type, raw-deflate compression, and the base64 form-field
// encoding used for request payloads. Tuple field order is part of the
// protocol and must not change.
package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Deflate compresses data with raw deflate (no zlib/gzip wrapper).
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create deflate writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish deflate stream: %w", err)
	}
	return buf.Bytes(), nil
}

// Inflate decompresses a raw deflate stream.
func Inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer func() { _ = r.Close() }()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to inflate: %w", err)
	}
	return out, nil
}

// EncodeField serializes v to JSON, deflates it and base64-encodes the
// result for use as a form field. The sibling field base64=true tells
// the peer which decoding to apply.
func EncodeField(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal field: %w", err)
	}
	compressed, err := Deflate(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// DecodeField reverses EncodeField into v.
func DecodeField(s string, v any) error {
	compressed, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("failed to base64-decode field: %w", err)
	}
	data, err := Inflate(compressed)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal field: %w", err)
	}
	return nil
}

// EncodeResponse deflates the JSON rendering of v for a response body.
func EncodeResponse(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return Deflate(data)
}

// DecodeResponse inflates a response body and unmarshals it into v.
func DecodeResponse(r io.Reader, v any) error {
	fr := flate.NewReader(r)
	defer func() { _ = fr.Close() }()
	data, err := io.ReadAll(fr)
	if err != nil {
		return fmt.Errorf("failed to inflate response: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// unmarshalTuple decodes a positional JSON array into the given
// destination pointers, enforcing exact arity.
func unmarshalTuple(data []byte, dst ...any) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("expected %d tuple elements, got %d", len(dst), len(raw))
	}
	for i, r := range raw {
		if err := json.Unmarshal(r, dst[i]); err != nil {
			return fmt.Errorf("tuple element %d: %w", i, err)
		}
	}
	return nil
}
