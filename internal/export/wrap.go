package export

import (
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Measurer reports the advance width of text set at size points.
type Measurer interface {
	Width(text string, size float64) float64
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(text string, size float64) float64

func (f MeasureFunc) Width(text string, size float64) float64 { return f(text, size) }

// FontMeasurer measures text with an OpenType font, caching one face per size.
type FontMeasurer struct {
	font  *opentype.Font
	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewFontMeasurer parses ttf into a measurer.
func NewFontMeasurer(ttf []byte) (*FontMeasurer, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return &FontMeasurer{font: f, faces: map[float64]font.Face{}}, nil
}

var (
	defaultMeasurer     *FontMeasurer
	defaultMeasurerOnce sync.Once
)

// DefaultMeasurer measures with the Go Regular face, whose metrics are close
// to Helvetica.
func DefaultMeasurer() *FontMeasurer {
	defaultMeasurerOnce.Do(func() {
		m, err := NewFontMeasurer(goregular.TTF)
		if err != nil {
			panic("export: parse embedded font: " + err.Error())
		}
		defaultMeasurer = m
	})
	return defaultMeasurer
}

// Width implements Measurer.
func (m *FontMeasurer) Width(text string, size float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	face, ok := m.faces[size]
	if !ok {
		var err error
		face, err = opentype.NewFace(m.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
		if err != nil {
			return 0
		}
		m.faces[size] = face
	}
	adv := font.MeasureString(face, text)
	return float64(adv) / 64
}

// Wrap breaks text into lines no wider than maxWidth. Words are separated by
// single spaces and placed greedily. A word wider than a whole line is split
// into the longest prefixes that fit, always taking at least one character.
func Wrap(text string, size, maxWidth float64, m Measurer) []string {
	var lines []string
	current := ""
	for _, word := range strings.Split(text, " ") {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if m.Width(candidate, size) <= maxWidth {
			current = candidate
			continue
		}
		if m.Width(word, size) <= maxWidth {
			if current != "" {
				lines = append(lines, current)
			}
			current = word
			continue
		}
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
		lines = append(lines, breakWord(word, size, maxWidth, m)...)
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func breakWord(word string, size, maxWidth float64, m Measurer) []string {
	var out []string
	rest := []rune(word)
	for len(rest) > 0 {
		n := 0
		for i := 1; i <= len(rest); i++ {
			if m.Width(string(rest[:i]), size) > maxWidth {
				break
			}
			n = i
		}
		if n == 0 {
			n = 1
		}
		out = append(out, string(rest[:n]))
		rest = rest[n:]
	}
	return out
}
