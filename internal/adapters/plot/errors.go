package plot

import "errors"

var (
	// ErrWriteImage is returned when an image or temporary file cannot be written.
	ErrWriteImage = errors.New("cannot write image")
	// ErrRender is returned when a plot cannot be drawn or decoded.
	ErrRender = errors.New("cannot render plot")
	// ErrNoImages is returned when composing an empty grid.
	ErrNoImages = errors.New("no images to compose")
)
