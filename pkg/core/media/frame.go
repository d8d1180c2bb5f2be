package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// FrameSpec is the output geometry and JPEG quality (1-100) of a snapshot.
type FrameSpec struct {
	Width   int
	Height  int
	Quality int
}

var (
	// LiveFrameSpec is used for frames streamed into a live session.
	LiveFrameSpec = FrameSpec{Width: 640, Height: 480, Quality: 85}
	// MoodFrameSpec is used for the short mood analysis burst.
	MoodFrameSpec = FrameSpec{Width: 320, Height: 240, Quality: 50}
)

// EncodeJPEG stretches img to the frame size and encodes it as JPEG.
func EncodeJPEG(img image.Image, fs FrameSpec) ([]byte, error) {
	if img == nil {
		return nil, ErrNoFrame
	}
	if fs.Width <= 0 || fs.Height <= 0 {
		return nil, fmt.Errorf("media: invalid frame size %dx%d", fs.Width, fs.Height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, fs.Width, fs.Height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: fs.Quality}); err != nil {
		return nil, fmt.Errorf("media: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// SnapshotJPEG captures the current frame of v and encodes it with fs.
func SnapshotJPEG(v VideoTrack, fs FrameSpec) ([]byte, error) {
	if v == nil {
		return nil, ErrNoFrame
	}
	img, err := v.Snapshot()
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img, fs)
}
