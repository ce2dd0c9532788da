package plot

import (
	"bytes"
	"image"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPNGWriter(t *testing.T) {
	Convey("Given a small image", t, func() {
		img := image.NewRGBA(image.Rect(0, 0, 8, 6))

		Convey("When encoding it through WriteTo", func() {
			var buf bytes.Buffer
			n, err := pngWriter{img}.WriteTo(&buf)

			Convey("Then the reported count should match the bytes written", func() {
				So(err, ShouldBeNil)
				So(n, ShouldBeGreaterThan, 0)
				So(n, ShouldEqual, int64(buf.Len()))
			})
		})
	})
}
