package features

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-verdict/pkg/types"
)

const (
	blurVarianceMin     = 45.0
	blockBoundaryRatio  = 1.6
	castSkewMin         = 0.12
	clippedFractionMin  = 0.10
	tileGrid            = 16
	noiseTileStddevMin  = 2.0
	noiseTileSpreadMax  = 0.22
	lightingSpreadMin   = 140.0
	edgeGradientMin     = 40.0
	ringMargin          = 6.0
	edgeSampleMin       = 40
	edgeRingingFraction = 0.25
	flatActivityMax     = 2.0
	smoothFractionMin   = 0.40
	repeatTileSize      = 16
	repeatTileMin       = 20
	flatTileRange       = 6.0
	repeatDupFraction   = 0.18
)

// ArtifactScore inspects the pixels for generation and editing artifacts
// and folds the raised flags into a score. A clean image scores 1.
func (e *Extractor) ArtifactScore(img image.Image) (float64, types.ArtifactSignals) {
	signals := e.DetectArtifacts(img)
	score := 1 - signals.SuspiciousWeight()/7
	if score < 0 {
		score = 0
	}
	return score, signals
}

// DetectArtifacts runs the individual pixel heuristics. Global traits
// (lighting, repetition, color cast) are measured on a bounded resized
// view; noise-sensitive traits on a native-resolution center crop; JPEG
// blockiness on the original pixel grid.
func (e *Extractor) DetectArtifacts(img image.Image) types.ArtifactSignals {
	global, detail := e.analysisViews(img)
	globalLum := luminancePlane(global)
	detailLum := luminancePlane(detail)

	return types.ArtifactSignals{
		Compression:          detectCompression(img),
		Blur:                 detectBlur(globalLum),
		ColorAdjustment:      detectColorAdjustment(global),
		NoisePatterns:        detectNoisePatterns(detailLum),
		InconsistentLighting: detectInconsistentLighting(globalLum),
		EdgeArtifacts:        detectEdgeArtifacts(detailLum),
		UnnaturalSmoothing:   detectUnnaturalSmoothing(detailLum),
		RepetitivePatterns:   detectRepetitivePatterns(globalLum),
	}
}

func (e *Extractor) analysisViews(img image.Image) (global, detail *image.NRGBA) {
	if img.Bounds().Dx() > e.config.MaxAnalysisWidth {
		global = imaging.Resize(img, e.config.MaxAnalysisWidth, 0, imaging.Lanczos)
	} else {
		global = imaging.Clone(img)
	}
	detail = imaging.CropCenter(img, e.config.MaxDetailSpan, e.config.MaxDetailSpan)
	return global, detail
}

// plane is a dense float64 luminance buffer for neighborhood math.
type plane struct {
	w, h int
	pix  []float64
}

func luminancePlane(img *image.NRGBA) plane {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	p := plane{w: w, h: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		i := y * img.Stride
		for x := 0; x < w; x++ {
			r := float64(img.Pix[i])
			g := float64(img.Pix[i+1])
			b := float64(img.Pix[i+2])
			p.pix[y*w+x] = 0.299*r + 0.587*g + 0.114*b
			i += 4
		}
	}
	return p
}

func (p plane) at(x, y int) float64 {
	return p.pix[y*p.w+x]
}

func (p plane) mean(x, y, w, h int) float64 {
	var sum, n float64
	for ry := y; ry < y+h && ry < p.h; ry++ {
		for rx := x; rx < x+w && rx < p.w; rx++ {
			sum += p.at(rx, ry)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

func (p plane) stddev(x, y, w, h int) float64 {
	var sum, sumSq, n float64
	for ry := y; ry < y+h && ry < p.h; ry++ {
		for rx := x; rx < x+w && rx < p.w; rx++ {
			v := p.at(rx, ry)
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// detectCompression compares luminance steps across 8-pixel block
// boundaries with steps inside blocks. JPEG-style compression leaves
// larger steps at the grid seams.
func detectCompression(img image.Image) bool {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 24 || h < 24 {
		return false
	}
	stepY := h / 256
	if stepY < 1 {
		stepY = 1
	}

	var boundary, interior float64
	var nb, ni float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for bx := 8; bx+4 < w; bx += 8 {
			x := bounds.Min.X + bx
			boundary += absf(lumAt(img, x, y) - lumAt(img, x-1, y))
			nb++
			interior += absf(lumAt(img, x+4, y) - lumAt(img, x+3, y))
			ni++
		}
	}
	if nb == 0 || ni == 0 {
		return false
	}
	meanInterior := interior / ni
	if meanInterior < 0.4 {
		return false
	}
	return (boundary/nb)/meanInterior > blockBoundaryRatio
}

// detectBlur flags soft focus via the variance of the Laplacian response.
func detectBlur(p plane) bool {
	if p.w < 3 || p.h < 3 {
		return false
	}
	var sum, sumSq, n float64
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			l := 4*p.at(x, y) - p.at(x-1, y) - p.at(x+1, y) - p.at(x, y-1) - p.at(x, y+1)
			sum += l
			sumSq += l * l
			n++
		}
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	return variance < blurVarianceMin
}

// detectColorAdjustment flags a strong global color cast or heavy
// highlight and shadow clipping.
func detectColorAdjustment(img *image.NRGBA) bool {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return false
	}

	var sumR, sumG, sumB, clipped, n float64
	for y := 0; y < h; y++ {
		i := y * img.Stride
		for x := 0; x < w; x++ {
			r := float64(img.Pix[i])
			g := float64(img.Pix[i+1])
			b := float64(img.Pix[i+2])
			sumR += r
			sumG += g
			sumB += b
			if r >= 250 || g >= 250 || b >= 250 || (r <= 5 && g <= 5 && b <= 5) {
				clipped++
			}
			n++
			i += 4
		}
	}

	skew := (maxf(sumR/n, sumG/n, sumB/n) - minf(sumR/n, sumG/n, sumB/n)) / 255
	return skew > castSkewMin || clipped/n > clippedFractionMin
}

// detectNoisePatterns flags noise that is identical everywhere in the
// frame. Sensor noise varies with content; overlaid synthetic grain does
// not.
func detectNoisePatterns(p plane) bool {
	tw, th := p.w/tileGrid, p.h/tileGrid
	if tw < 4 || th < 4 {
		return false
	}

	devs := make([]float64, 0, tileGrid*tileGrid)
	for ty := 0; ty < tileGrid; ty++ {
		for tx := 0; tx < tileGrid; tx++ {
			devs = append(devs, p.stddev(tx*tw, ty*th, tw, th))
		}
	}

	mean, sd := meanAndStddev(devs)
	if mean < noiseTileStddevMin {
		return false
	}
	return sd/mean < noiseTileSpreadMax
}

// detectInconsistentLighting flags extreme brightness divergence between
// image quadrants.
func detectInconsistentLighting(p plane) bool {
	if p.w < 4 || p.h < 4 {
		return false
	}
	hw, hh := p.w/2, p.h/2
	q := []float64{
		p.mean(0, 0, hw, hh),
		p.mean(hw, 0, p.w-hw, hh),
		p.mean(0, hh, hw, p.h-hh),
		p.mean(hw, hh, p.w-hw, p.h-hh),
	}
	return maxf(q...)-minf(q...) > lightingSpreadMin
}

// detectEdgeArtifacts flags ringing halos: strong edges where the bright
// side overshoots and the dark side undershoots their stable levels.
func detectEdgeArtifacts(p plane) bool {
	if p.w < 8 || p.h < 2 {
		return false
	}
	var edges, ringing float64
	for y := 0; y < p.h; y++ {
		for x := 2; x < p.w-3; x++ {
			g := p.at(x+1, y) - p.at(x, y)
			if absf(g) < edgeGradientMin {
				continue
			}
			edges++
			if g > 0 {
				if p.at(x+1, y)-p.at(x+3, y) > ringMargin && p.at(x, y)-p.at(x-2, y) < -ringMargin {
					ringing++
				}
			} else {
				if p.at(x+1, y)-p.at(x+3, y) < -ringMargin && p.at(x, y)-p.at(x-2, y) > ringMargin {
					ringing++
				}
			}
		}
	}
	if edges < edgeSampleMin {
		return false
	}
	return ringing/edges > edgeRingingFraction
}

// detectUnnaturalSmoothing flags large fractions of pixels with almost no
// local activity. Even featureless areas of real captures carry sensor
// noise.
func detectUnnaturalSmoothing(p plane) bool {
	if p.w < 3 || p.h < 3 {
		return false
	}
	var flat, n float64
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			c := p.at(x, y)
			activity := absf(c-p.at(x-1, y)) + absf(c-p.at(x+1, y)) +
				absf(c-p.at(x, y-1)) + absf(c-p.at(x, y+1))
			if activity < flatActivityMax {
				flat++
			}
			n++
		}
	}
	return flat/n > smoothFractionMin
}

// detectRepetitivePatterns flags duplicated texture tiles. Flat tiles are
// skipped so skies and walls do not register as repetition.
func detectRepetitivePatterns(p plane) bool {
	tiles := 0
	seen := make(map[uint64]int)
	for y := 0; y+repeatTileSize <= p.h; y += repeatTileSize {
		for x := 0; x+repeatTileSize <= p.w; x += repeatTileSize {
			hash, ok := p.tileHash(x, y, repeatTileSize)
			if !ok {
				continue
			}
			seen[hash]++
			tiles++
		}
	}
	if tiles < repeatTileMin {
		return false
	}
	dups := 0
	for _, c := range seen {
		dups += c - 1
	}
	return float64(dups)/float64(tiles) > repeatDupFraction
}

// tileHash reduces a tile to 4x4 quantized cell means. The second return
// is false for flat tiles.
func (p plane) tileHash(x, y, size int) (uint64, bool) {
	cell := size / 4
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	var hash uint64
	for cy := 0; cy < 4; cy++ {
		for cx := 0; cx < 4; cx++ {
			m := p.mean(x+cx*cell, y+cy*cell, cell, cell)
			if m < lo {
				lo = m
			}
			if m > hi {
				hi = m
			}
			hash = hash<<4 | (uint64(m) >> 4)
		}
	}
	if hi-lo < flatTileRange {
		return 0, false
	}
	return hash, true
}

func meanAndStddev(vs []float64) (float64, float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	mean := sum / float64(len(vs))
	var sq float64
	for _, v := range vs {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(vs)))
}

func lumAt(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}
