package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/Cheese-Board/internal/boardstate"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Sensor boards only know occupancy, so both sides are drawn as plain discs.
const discSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">` +
	`<circle cx="50" cy="50" r="32" fill="%s" stroke="%s" stroke-width="6"/></svg>`

type discKey struct {
	side boardstate.Occupancy
	size int
}

var (
	discCache   = map[discKey]image.Image{}
	discCacheMu sync.RWMutex
)

func renderDisc(side boardstate.Occupancy, size int) (image.Image, error) {
	key := discKey{side: side, size: size}

	discCacheMu.RLock()
	if img, ok := discCache[key]; ok {
		discCacheMu.RUnlock()
		return img, nil
	}
	discCacheMu.RUnlock()

	fill, stroke := "#f4f1ea", "#2b2b2b"
	if side == boardstate.Black {
		fill, stroke = "#262626", "#d9d9d9"
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(fmt.Sprintf(discSVG, fill, stroke)))
	if err != nil {
		return nil, fmt.Errorf("parse disc svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	discCacheMu.Lock()
	discCache[key] = img
	discCacheMu.Unlock()

	return img, nil
}
