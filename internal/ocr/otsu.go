package ocr

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"

	_ "image/gif"
)

// decodeImage tries the format-sniffing decoder first, then retries with the
// concrete PNG/JPEG decoders for files whose magic bytes are mangled (a
// surprisingly common artifact of fax-to-email scanners).
func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err == nil {
		return img, nil
	}
	firstErr := err

	if _, err := f.Seek(0, 0); err == nil {
		if img, err := png.Decode(f); err == nil {
			return img, nil
		}
	}
	if _, err := f.Seek(0, 0); err == nil {
		if img, err := jpeg.Decode(f); err == nil {
			return img, nil
		}
	}
	return nil, firstErr
}

// grayscale converts to 8-bit luminance.
func grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// otsuThreshold picks the threshold maximizing between-class variance over
// the 256-bin luminance histogram.
func otsuThreshold(gray *image.Gray) uint8 {
	var hist [256]int
	total := 0
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return 127
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumB, wB float64
	var best float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// binarize applies the threshold, producing a black-on-white image.
func binarize(gray *image.Gray, threshold uint8) *image.Gray {
	b := gray.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if gray.GrayAt(x, y).Y > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// preprocessForOCR writes an Otsu-binarized copy of the image to a temp PNG.
// The caller must invoke cleanup.
func preprocessForOCR(path string) (outPath string, cleanup func(), err error) {
	img, err := decodeImage(path)
	if err != nil {
		return "", nil, err
	}
	gray := grayscale(img)
	bin := binarize(gray, otsuThreshold(gray))

	tmp, err := os.CreateTemp("", "fa-otsu-*.png")
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { _ = os.Remove(tmp.Name()) }
	if err := png.Encode(tmp, bin); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}
