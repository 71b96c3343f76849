package features

import (
	"image"
	"math"
)

// NoiseScore rates how closely the pixel noise resembles camera sensor
// output. Natural photos carry moderate, channel-consistent variation;
// generated images tend to be too clean, too noisy, or uneven across
// channels.
func (e *Extractor) NoiseScore(img image.Image) float64 {
	stddev := channelStddev(img)
	noiseLevel := (stddev[0] + stddev[1] + stddev[2]) / 3 / 255

	spread := maxf(stddev[0], stddev[1], stddev[2]) - minf(stddev[0], stddev[1], stddev[2])
	consistency := clamp(1-spread/100, 0, 1)

	var base float64
	switch {
	case noiseLevel >= e.config.NoiseBandLow && noiseLevel <= e.config.NoiseBandHigh:
		base = 0.5
	case noiseLevel < e.config.NoiseFloor:
		base = 0.1 // too clean
	case noiseLevel > e.config.NoiseCeiling:
		base = 0.2 // too noisy
	default:
		base = 0.3
	}
	return clamp(base+0.5*consistency, 0, 1)
}

// channelStddev computes the per-channel standard deviation of pixel
// intensities on an 8-bit scale, sampling large images on a grid.
func channelStddev(img image.Image) [3]float64 {
	bounds := img.Bounds()
	stepX := bounds.Dx() / 512
	if stepX < 1 {
		stepX = 1
	}
	stepY := bounds.Dy() / 512
	if stepY < 1 {
		stepY = 1
	}

	var sum, sumSq [3]float64
	var n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			cs := [3]float64{float64(r >> 8), float64(g >> 8), float64(b >> 8)}
			for i, c := range cs {
				sum[i] += c
				sumSq[i] += c * c
			}
			n++
		}
	}

	var out [3]float64
	if n == 0 {
		return out
	}
	for i := range out {
		mean := sum[i] / n
		variance := sumSq[i]/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

func maxf(vs ...float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minf(vs ...float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
