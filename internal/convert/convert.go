package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// smoothingRadius matches the historical gaussian standard deviation.
const smoothingRadius = 1.0

// nonContentThreshold is the grayscale value at and above which a pixel
// counts as background when trimming white borders.
const nonContentThreshold = 255

// Run executes one conversion job end to end and returns the path the STL
// file was written to.
func Run(job Job) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(job.ImageData))
	if err != nil {
		return "", fmt.Errorf("convert: decode image: %w", err)
	}

	prepared := prepare(img, job.Options)
	mesh := MeshFromHeightmap(Heightmap(prepared), job.Options)
	if err := WriteSTLFile(job.OutputPath, mesh); err != nil {
		return "", err
	}
	return job.OutputPath, nil
}

// prepare applies the 2D stages of the pipeline and returns the grayscale
// image whose intensities become mesh heights.
func prepare(img image.Image, opts Options) image.Image {
	flat := flattenTransparency(img)
	resized := imaging.Resize(flat, opts.Size, opts.Size, imaging.Lanczos)

	shaped := resized
	if opts.Negative {
		trimmed := trimWhiteBorder(resized)
		shaped = addWhiteBorder(trimmed, opts.Border)
	}

	var out image.Image = imaging.Grayscale(shaped)
	if opts.Smooth {
		out = blur.Gaussian(out, smoothingRadius)
	}
	if !opts.Negative {
		// Positive prints raise the dark areas, so the grayscale is inverted
		// before extrusion. Negative prints keep white as the raised field.
		out = effect.Invert(out)
	}
	return out
}

// flattenTransparency replaces fully transparent pixels with opaque white
// and discards the alpha channel everywhere else.
func flattenTransparency(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	bounds := out.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := out.PixOffset(x, y)
			if out.Pix[i+3] == 0 {
				out.Pix[i] = 0xff
				out.Pix[i+1] = 0xff
				out.Pix[i+2] = 0xff
			}
			out.Pix[i+3] = 0xff
		}
	}
	return out
}

// trimWhiteBorder crops the image to the bounding box of its non-white
// pixels. An all-white image is returned unchanged.
func trimWhiteBorder(img *image.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X, bounds.Min.Y

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if luminanceAt(img, x, y) >= nonContentThreshold {
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

	if minX > maxX || minY > maxY {
		return img
	}
	return imaging.Crop(img, image.Rect(minX, minY, maxX+1, maxY+1))
}

// addWhiteBorder pastes the image onto a white canvas extended by border
// pixels on all four sides.
func addWhiteBorder(img *image.NRGBA, border int) *image.NRGBA {
	if border <= 0 {
		return img
	}
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx()+2*border, bounds.Dy()+2*border, color.White)
	return imaging.Paste(canvas, img, image.Pt(border, border))
}

// Heightmap converts a grayscale image into a row-major intensity matrix in
// the 0..255 range.
func Heightmap(img image.Image) [][]float64 {
	bounds := img.Bounds()
	rows := make([][]float64, bounds.Dy())
	for y := range rows {
		row := make([]float64, bounds.Dx())
		for x := range row {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			row[x] = float64(g.Y)
		}
		rows[y] = row
	}
	return rows
}

func luminanceAt(img *image.NRGBA, x, y int) int {
	i := img.PixOffset(x, y)
	r := int(img.Pix[i])
	g := int(img.Pix[i+1])
	b := int(img.Pix[i+2])
	return (r + g + b) / 3
}
