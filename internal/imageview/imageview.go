// Package imageview loads catalogued photos and prepares them for display.
package imageview

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"

	"github.com/flower-explorer/vistool/internal/catalog"
	"github.com/flower-explorer/vistool/internal/errors"
)

// DefaultJPEGQuality is used when Encode is given a quality outside 1..100.
const DefaultJPEGQuality = 85

// Options controls Render.
type Options struct {
	RotateNorth bool    // rotate so that north points up
	Yaw         float64 // degrees clockwise from north, used with RotateNorth
	CropSize    int     // edge of the central square crop in pixels, 0 disables
}

// Load decodes the JPEG derivative of an image. Images that only have a RAW file fail with
// errors.ErrRawDecodeUnsupported; RAW pixels are never decoded.
func Load(meta *catalog.ImageMeta) (image.Image, error) {
	switch {
	case meta.JpgPath != nil:
		img, err := imaging.Open(*meta.JpgPath)
		if err != nil {
			return nil, errors.New(fmt.Errorf("decode %s: %w", *meta.JpgPath, err)).
				Component("imageview").
				Category(errors.CategoryImageProcessing).
				FileContext(*meta.JpgPath).
				Context("image_id", meta.ID).
				Build()
		}
		return img, nil

	case meta.RawPath != nil:
		return nil, errors.New(fmt.Errorf("image %s has no JPEG derivative: %w", meta.Label, errors.ErrRawDecodeUnsupported)).
			Component("imageview").
			Category(errors.CategoryUnsupported).
			FileContext(*meta.RawPath).
			Context("image_id", meta.ID).
			Build()

	default:
		// Ingestion never creates an image without a file
		return nil, errors.Newf("image %d (%s) has neither a JPEG nor a RAW path", meta.ID, meta.Label).
			Component("imageview").
			Category(errors.CategoryImageProcessing).
			Context("image_id", meta.ID).
			Priority(errors.PriorityHigh).
			Build()
	}
}

// Render applies the central crop and then the north rotation. The input is not modified.
func Render(img image.Image, opts Options) image.Image {
	out := img
	if opts.CropSize > 0 {
		out = CentralCrop(out, opts.CropSize)
	}
	if opts.RotateNorth && opts.Yaw != 0 {
		// imaging rotates counter-clockwise; undo a clockwise heading. The canvas grows to fit.
		out = imaging.Rotate(out, -opts.Yaw, color.Black)
	}
	return out
}

// CentralCrop cuts a size x size square from the image centre. Edges larger than the image are
// clamped to it.
func CentralCrop(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := min(size, b.Dx()), min(size, b.Dy())
	return imaging.CropCenter(img, w, h)
}

// Encode writes img as JPEG.
func Encode(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return errors.New(err).
			Component("imageview").
			Category(errors.CategoryImageProcessing).
			Build()
	}
	return nil
}
