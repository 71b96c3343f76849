package exif

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/evanoberholster/imagemeta"

	"github.com/menta2k/image-verdict/pkg/types"
)

// Reader extracts camera metadata from raw image bytes. It is backed by
// evanoberholster/imagemeta, which parses EXIF from JPEG, TIFF and HEIC
// containers in pure Go and reads only the metadata bytes.
type Reader struct{}

// NewReader creates a new EXIF reader.
func NewReader() *Reader {
	return &Reader{}
}

// Metadata is the parsed EXIF evidence plus container dimensions when the
// parser reports them.
type Metadata struct {
	Signals types.ExifSignals
	Width   int
	Height  int
}

// Read parses the EXIF block from data. A parse failure returns an error;
// callers treat that as "no metadata present", never as fatal.
func (r *Reader) Read(data []byte) (*Metadata, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	sig := types.ExifSignals{
		CameraMake:   strings.TrimSpace(exifData.Make),
		CameraModel:  strings.TrimSpace(exifData.Model),
		Software:     strings.TrimSpace(exifData.Software),
		ISO:          int(exifData.ISOSpeed),
		Aperture:     float64(exifData.FNumber),
		ShutterSpeed: float64(exifData.ExposureTime),
		FocalLength:  float64(exifData.FocalLength),
	}

	// Date/time fallback chain: DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		sig.DateTime = exifData.DateTimeOriginal()
		sig.HasDateTime = true
	case !exifData.CreateDate().IsZero():
		sig.DateTime = exifData.CreateDate()
		sig.HasDateTime = true
	case !exifData.ModifyDate().IsZero():
		sig.DateTime = exifData.ModifyDate()
		sig.HasDateTime = true
	}

	// GPS rationals arrive converted to float64 with the reference
	// direction already applied.
	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		sig.GPSLatitude = gps.Latitude()
		sig.GPSLongitude = gps.Longitude()
		sig.HasGPS = true
	}

	// An EXIF block counts as present only when it carries at least one
	// usable signal; an empty block scores nothing.
	sig.HasExif = sig.CameraMake != "" || sig.CameraModel != "" || sig.Software != "" ||
		sig.HasDateTime || sig.HasGPS || sig.ISO != 0 || sig.Aperture != 0 ||
		sig.ShutterSpeed != 0 || sig.FocalLength != 0

	return &Metadata{
		Signals: sig,
		Width:   int(exifData.ImageWidth),
		Height:  int(exifData.ImageHeight),
	}, nil
}
