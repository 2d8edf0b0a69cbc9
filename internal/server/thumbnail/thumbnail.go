// Package thumbnail renders small PNG previews of uploaded images.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Size is the edge of the square canvas in pixels.
const Size = 100

// Name is the object name stored next to the original file.
const Name = "thumbnail.png"

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".webp": {}, ".bmp": {}, ".tif": {}, ".tiff": {},
}

// IsImage reports whether a thumbnail should be attempted, judged by the
// content type first and the extension second.
func IsImage(contentType, filename string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return true
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(filename))]
	return ok
}

// Generate decodes r and returns a Size x Size PNG. The image is scaled to
// fit, keeps its aspect ratio, and is centred on a white background.
// Images smaller than the canvas are not enlarged.
func Generate(r io.Reader) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	draw.CatmullRom.Scale(dst, fit(src.Bounds(), Size), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// fit returns the centred rectangle inside a size x size square that
// src scales into.
func fit(src image.Rectangle, size int) image.Rectangle {
	w, h := src.Dx(), src.Dy()
	if w > size || h > size {
		if w >= h {
			h = max(1, h*size/w)
			w = size
		} else {
			w = max(1, w*size/h)
			h = size
		}
	}
	x := (size - w) / 2
	y := (size - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
