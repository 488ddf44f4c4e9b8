package recording

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode serializes frames the way record-screen events carry them:
// base64(gzip(base64(json))).
func Encode(frames []domain.Frame) (string, error) {
	if frames == nil {
		frames = []domain.Frame{}
	}
	raw, err := json.Marshal(frames)
	if err != nil {
		return "", fmt.Errorf("marshal frames: %w", err)
	}
	inner := base64.StdEncoding.EncodeToString(raw)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(inner)); err != nil {
		return "", fmt.Errorf("gzip frames: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip frames: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeFrames reverses Encode.
func DecodeFrames(payload string) ([]domain.Frame, error) {
	compressed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode outer base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()
	inner, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read gzip: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(string(inner))
	if err != nil {
		return nil, fmt.Errorf("decode inner base64: %w", err)
	}
	var frames []domain.Frame
	if err := json.Unmarshal(raw, &frames); err != nil {
		return nil, fmt.Errorf("unmarshal frames: %w", err)
	}
	return frames, nil
}
