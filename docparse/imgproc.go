package docparse

import (
	"bytes"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

const (
	// whiteThreshold is the per-channel 8-bit floor above which a pixel
	// counts as background white.
	whiteThreshold = 240

	// trimPadding is how many pixels of margin survive a white-border trim.
	trimPadding = 10

	// maxRenderEdge caps the longest side of a rendered visual. Vision
	// models downsample anything larger anyway, so shipping more pixels
	// only costs tokens and upload time.
	maxRenderEdge = 1568
)

// processRender runs post-render hygiene on a PNG: an optional white-border
// trim for region renders, then a size cap, then re-encoding. Undecodable
// input is the caller's cue to keep the raw bytes.
func processRender(data []byte, trim bool) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if trim {
		img = trimWhiteBorder(img)
	}
	img = capImageSize(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isWhite(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	lim := uint32(whiteThreshold) << 8
	return r > lim && g > lim && b > lim
}

// trimWhiteBorder crops away the uniform white margin a padded region render
// carries, keeping trimPadding pixels around the content. An all-white image
// comes back unchanged.
func trimWhiteBorder(img image.Image) image.Image {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if isWhite(img, x, y) {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX {
		return img
	}

	crop := image.Rect(minX-trimPadding, minY-trimPadding, maxX+trimPadding+1, maxY+trimPadding+1).Intersect(b)
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(crop)
	}
	dst := image.NewRGBA(crop)
	draw.Copy(dst, crop.Min, img, crop, draw.Src, nil)
	return dst
}

// capImageSize scales an image down so its longest edge is at most
// maxRenderEdge, preserving aspect ratio. Smaller images pass through.
func capImageSize(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := w
	if h > long {
		long = h
	}
	if long <= maxRenderEdge {
		return img
	}

	scale := float64(maxRenderEdge) / float64(long)
	nw, nh := int(float64(w)*scale+0.5), int(float64(h)*scale+0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
