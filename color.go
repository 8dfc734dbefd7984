package ggreplay

import (
	"strconv"
	"strings"

	"github.com/gogpu/gg"
)

// namedColors covers the names that actually show up in recorded canvas
// streams. Anything more exotic arrives as hex or rgb() from the browser's
// own normalization.
var namedColors = map[string]gg.RGBA{
	"black":       {R: 0, G: 0, B: 0, A: 1},
	"white":       {R: 1, G: 1, B: 1, A: 1},
	"red":         {R: 1, G: 0, B: 0, A: 1},
	"green":       {R: 0, G: 0.5, B: 0, A: 1},
	"lime":        {R: 0, G: 1, B: 0, A: 1},
	"blue":        {R: 0, G: 0, B: 1, A: 1},
	"yellow":      {R: 1, G: 1, B: 0, A: 1},
	"cyan":        {R: 0, G: 1, B: 1, A: 1},
	"magenta":     {R: 1, G: 0, B: 1, A: 1},
	"gray":        {R: 0.5, G: 0.5, B: 0.5, A: 1},
	"grey":        {R: 0.5, G: 0.5, B: 0.5, A: 1},
	"orange":      {R: 1, G: 0.647, B: 0, A: 1},
	"purple":      {R: 0.5, G: 0, B: 0.5, A: 1},
	"transparent": {},
}

// ParseColor parses a recorded CSS color value: #RGB, #RGBA, #RRGGBB,
// #RRGGBBAA, rgb(...), rgba(...), or a common color name.
func ParseColor(css string) (gg.RGBA, bool) {
	css = strings.TrimSpace(strings.ToLower(css))
	if css == "" {
		return gg.RGBA{}, false
	}

	if col, ok := namedColors[css]; ok {
		return col, true
	}

	if css[0] == '#' {
		return parseHexColor(css)
	}

	if strings.HasPrefix(css, "rgb(") || strings.HasPrefix(css, "rgba(") {
		return parseRGBFunc(css)
	}

	return gg.RGBA{}, false
}

func parseHexColor(css string) (gg.RGBA, bool) {
	hex := css[1:]
	switch len(hex) {
	case 3, 4, 6, 8:
	default:
		return gg.RGBA{}, false
	}
	for i := 0; i < len(hex); i++ {
		c := hex[i]
		isDigit := c >= '0' && c <= '9'
		isHexAlpha := c >= 'a' && c <= 'f'
		if !isDigit && !isHexAlpha {
			return gg.RGBA{}, false
		}
	}
	return gg.Hex(css), true
}

// parseRGBFunc parses rgb(r, g, b) and rgba(r, g, b, a) with numeric or
// percentage channels, including the space-separated form with "/" alpha.
func parseRGBFunc(css string) (gg.RGBA, bool) {
	open := strings.IndexByte(css, '(')
	if open < 0 || !strings.HasSuffix(css, ")") {
		return gg.RGBA{}, false
	}
	body := strings.ReplaceAll(css[open+1:len(css)-1], "/", " ")

	var parts []string
	if strings.ContainsRune(body, ',') {
		parts = strings.Split(body, ",")
	} else {
		parts = strings.Fields(body)
	}
	if len(parts) < 3 || len(parts) > 4 {
		return gg.RGBA{}, false
	}

	var channels [4]float64
	channels[3] = 1
	for i, part := range parts {
		part = strings.TrimSpace(part)
		percent := strings.HasSuffix(part, "%")
		part = strings.TrimSuffix(part, "%")
		n, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return gg.RGBA{}, false
		}
		switch {
		case percent:
			channels[i] = n / 100
		case i == 3:
			channels[i] = n
		default:
			channels[i] = n / 255
		}
	}

	for i, c := range channels {
		channels[i] = min(max(c, 0), 1)
	}
	return gg.RGBA{R: channels[0], G: channels[1], B: channels[2], A: channels[3]}, true
}
