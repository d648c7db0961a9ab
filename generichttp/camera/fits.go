package camera

import (
	"io"

	"github.com/astrogo/fitsio"
)

// writeFits streams a FITS file to w.  The buffer holds nframes images of
// width x height pixels, row major, frames contiguous.  Pixels are written
// as int16 with the conventional BZERO offset so readers recover the
// unsigned range.
func writeFits(w io.Writer, metadata []fitsio.Card, buffer []uint16, width, height, nframes int) error {
	metadata = append(metadata,
		fitsio.Card{Name: "BZERO", Value: 32768},
		fitsio.Card{Name: "BSCALE", Value: 1.0})
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{width, height}
	if nframes > 1 {
		dims = append(dims, nframes)
	}
	im := fitsio.NewImage(16, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}
	ints := make([]int16, len(buffer))
	for idx := 0; idx < len(buffer); idx++ {
		ints[idx] = int16(int32(buffer[idx]) - 32768)
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}
