package asset

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pelletier/go-toml/v2"
	"github.com/saintfish/chardet"
)

// MaxDocumentSize bounds a decoded (decompressed) document.
const MaxDocumentSize = 4 * 1024 * 1024

// Format is a document encoding
type Format string

const (
	FormatUnknown Format = ""
	FormatYAML    Format = "yaml"
	FormatTOML    Format = "toml"
	FormatJSON    Format = "json"
)

// Compression is a document wrapper encoding
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

var formatExts = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".toml": FormatTOML,
	".json": FormatJSON,
}

var compressionExts = map[string]Compression{
	".gz":  CompressionGzip,
	".zst": CompressionZstd,
}

// splitName strips compression and format extensions from a slash path.
func splitName(p string) (base string, format Format, compression Compression) {
	base = p
	if c, ok := compressionExts[path.Ext(base)]; ok {
		compression = c
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	if f, ok := formatExts[path.Ext(base)]; ok {
		format = f
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	return base, format, compression
}

// Decode turns raw bytes into a document. Compression and format are taken
// from hints when known, otherwise sniffed from the content.
func Decode(data []byte, format Format, compression Compression) (*Document, error) {
	if compression == CompressionNone {
		compression = sniffCompression(data)
	}
	data, err := decompress(data, compression)
	if err != nil {
		return nil, err
	}

	if !utf8.Valid(data) {
		return nil, fmt.Errorf("document is not valid UTF-8 (detected %s)", detectCharset(data))
	}

	if format == FormatUnknown {
		format = sniffFormat(data)
	}

	var doc Document
	switch format {
	case FormatJSON:
		err = sonic.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s document: %w", format, err)
	}
	return &doc, nil
}

func sniffCompression(data []byte) Compression {
	mime := mimetype.Detect(data)
	switch {
	case mime.Is("application/gzip"):
		return CompressionGzip
	case mime.Is("application/zstd"):
		return CompressionZstd
	}
	return CompressionNone
}

func sniffFormat(data []byte) Format {
	if mimetype.Detect(data).Is("application/json") {
		return FormatJSON
	}
	// YAML parses JSON too, so it is the safest fallback for plain text.
	return FormatYAML
}

func decompress(data []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip document: %w", err)
		}
		defer zr.Close()
		return readLimited(zr)
	case CompressionZstd:
		dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderMaxMemory(MaxDocumentSize))
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd document: %w", err)
		}
		defer dec.Close()
		return readLimited(dec)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
	}
	return data, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress document: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
	}
	return data, nil
}

func detectCharset(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "unknown charset"
	}
	return result.Charset
}
