package features

import (
	"strings"

	"github.com/menta2k/image-verdict/pkg/types"
)

// generatorSignatures are software-tag substrings that identify an image
// as the direct output of a generative model.
var generatorSignatures = []string{
	"stable diffusion",
	"midjourney",
	"dall-e",
	"dall·e",
	"dalle",
	"firefly",
	"flux",
	"comfyui",
	"automatic1111",
	"invokeai",
	"novelai",
	"leonardo",
	"imagen",
	"ideogram",
	"recraft",
	"gpt-image",
}

// cameraBrands are manufacturer names that earn the known-brand bonus.
var cameraBrands = []string{
	"canon",
	"nikon",
	"sony",
	"fujifilm",
	"panasonic",
	"olympus",
	"om digital",
	"leica",
	"pentax",
	"ricoh",
	"hasselblad",
	"sigma",
	"apple",
	"samsung",
	"google",
	"huawei",
	"xiaomi",
	"oneplus",
}

// ExifScore rates how strongly the camera metadata supports a real
// capture. A generator signature in the software tag zeroes the score
// outright; otherwise present tags accumulate weighted points.
func (e *Extractor) ExifScore(sig types.ExifSignals) float64 {
	if HasGeneratorSignature(sig.Software) {
		return 0
	}

	points := 0.0
	if sig.HasExif {
		points += 15
	}
	if sig.CameraMake != "" {
		points += 10
		if isKnownCameraBrand(sig.CameraMake) {
			points += 10
		}
	}
	if sig.CameraModel != "" {
		points += 10
	}
	if sig.HasDateTime {
		points += 15
	}
	if sig.HasGPS {
		points += 20
	}
	if sig.ISO > 0 {
		points += 5
	}
	if sig.Aperture > 0 {
		points += 5
	}
	if sig.ShutterSpeed > 0 {
		points += 5
	}
	if sig.FocalLength > 0 {
		points += 5
	}
	return points / 100
}

// HasGeneratorSignature reports whether a software tag names a known
// generative tool.
func HasGeneratorSignature(software string) bool {
	if software == "" {
		return false
	}
	low := strings.ToLower(software)
	for _, sig := range generatorSignatures {
		if strings.Contains(low, sig) {
			return true
		}
	}
	return false
}

func isKnownCameraBrand(maker string) bool {
	low := strings.ToLower(maker)
	for _, brand := range cameraBrands {
		if strings.Contains(low, brand) {
			return true
		}
	}
	return false
}
