package importer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedImage = errors.New("unsupported image")

// ImageInfo describes an encoded bitmap without decoding its pixels.
type ImageInfo struct {
	Format   string `json:"format"`
	MimeType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Probe reads the header of an encoded image.
func Probe(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%w: empty %s image", ErrUnsupportedImage, format)
	}
	return ImageInfo{
		Format:   format,
		MimeType: "image/" + format,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// DataURI encodes data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the mime type and payload of a base64 data URI.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	mimeType, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return "", nil, fmt.Errorf("data URI encoding %q not supported", enc)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	return mimeType, data, nil
}

// DecodeSource decodes the bitmap behind a page source.
func DecodeSource(src string) (image.Image, error) {
	_, data, err := DecodeDataURI(src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}
