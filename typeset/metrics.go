// Package typeset provides font metric estimation and prohibited-character
// aware line breaking for the paginator.
package typeset

import (
	"math"
	"sync"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/width"
)

// Metrics describes character advance and line height for one font size.
type Metrics struct {
	AvgCharWidth float64
	LineHeight   float64
}

// referenceGlyph is measured when nothing better is known about the active
// script. Reading surface is CJK-centric so a full-width han glyph is used.
const referenceGlyph = '中'

const lineHeightFactor = 1.4

// Measurer memoizes metrics per integer font size. Safe for concurrent use.
type Measurer struct {
	mu   sync.Mutex
	memo map[int]Metrics
}

func NewMeasurer() *Measurer {
	return &Measurer{memo: make(map[int]Metrics)}
}

// MetricsFor returns average advance width and line height for the given font
// size in pixels. Non-positive sizes fall back to 16px.
func (m *Measurer) MetricsFor(fontSize int) Metrics {
	if fontSize <= 0 {
		fontSize = 16
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if met, ok := m.memo[fontSize]; ok {
		return met
	}
	met := Metrics{
		AvgCharWidth: RuneAdvance(referenceGlyph, fontSize),
		LineHeight:   math.Ceil(float64(fontSize) * lineHeightFactor),
	}
	m.memo[fontSize] = met
	return met
}

// RuneAdvance returns the approximate advance width in pixels of r at the
// given font size. Wide East Asian runes take a full em, everything else half.
func RuneAdvance(r rune, fontSize int) float64 {
	cells := runewidth.RuneWidth(r)
	if cells <= 0 {
		// combining marks and control runes take no room of their own
		return 0
	}
	if cells == 1 && width.LookupRune(r).Kind() == width.EastAsianAmbiguous {
		// go-runewidth treats ambiguous runes as narrow by default but on a
		// CJK reading surface they render full width
		cells = 2
	}
	return float64(cells) * float64(fontSize) / 2
}
