// Package imaging normalizes user profile photos.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// PhotoSize bounds the width and height of a stored photo.
const PhotoSize = 256

// MaxUploadBytes caps the size of an uploaded photo.
const MaxUploadBytes = 5 << 20

// JPEGQuality is the compression quality of stored photos.
const JPEGQuality = 85

// MIME is the type of every stored photo.
const MIME = "image/jpeg"

var (
	// ErrUnsupported is returned for anything other than JPEG or PNG input.
	ErrUnsupported = errors.New("unsupported image format (only JPEG and PNG accepted)")
	// ErrTooLarge is returned when the upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("image too large")
)

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// NormalizePhoto reads an uploaded photo, checks its format by sniffing the
// bytes, shrinks it to fit PhotoSize and re-encodes it as JPEG on a white
// background.
func NormalizePhoto(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	if !accepted[http.DetectContentType(data)] {
		return nil, ErrUnsupported
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fit(img, PhotoSize), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales img down so neither side exceeds limit, keeping the aspect
// ratio, and flattens transparency onto white. Smaller images keep their size.
func fit(img image.Image, limit int) image.Image {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()

	if w > limit || h > limit {
		if w >= h {
			w, h = limit, h*limit/w
		} else {
			w, h = w*limit/h, limit
		}
		w, h = max(w, 1), max(h, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}
