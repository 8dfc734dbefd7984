package ggreplay

import (
	"math"
	"testing"

	"github.com/gogpu/gg"
)

func colorsClose(a, b gg.RGBA) bool {
	const eps = 0.01
	return math.Abs(a.R-b.R) < eps &&
		math.Abs(a.G-b.G) < eps &&
		math.Abs(a.B-b.B) < eps &&
		math.Abs(a.A-b.A) < eps
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		css  string
		want gg.RGBA
	}{
		{"#ff0000", gg.RGBA{R: 1, A: 1}},
		{"#F00", gg.RGBA{R: 1, A: 1}},
		{"#00ff0080", gg.RGBA{G: 1, A: 128.0 / 255}},
		{"#0f08", gg.RGBA{G: 1, A: 136.0 / 255}},
		{"rgb(255, 0, 0)", gg.RGBA{R: 1, A: 1}},
		{"rgba(0, 0, 255, 0.5)", gg.RGBA{B: 1, A: 0.5}},
		{"rgb(100%, 0%, 50%)", gg.RGBA{R: 1, B: 0.5, A: 1}},
		{"rgb(255 0 0 / 0.25)", gg.RGBA{R: 1, A: 0.25}},
		{"rgba(300, -5, 0, 2)", gg.RGBA{R: 1, A: 1}},
		{"red", gg.RGBA{R: 1, A: 1}},
		{"WHITE", gg.RGBA{R: 1, G: 1, B: 1, A: 1}},
		{" black ", gg.RGBA{A: 1}},
		{"transparent", gg.RGBA{}},
	}

	for _, tt := range tests {
		t.Run(tt.css, func(t *testing.T) {
			got, ok := ParseColor(tt.css)
			if !ok {
				t.Fatalf("ParseColor(%q) not ok", tt.css)
			}
			if !colorsClose(got, tt.want) {
				t.Errorf("ParseColor(%q) = %+v, want %+v", tt.css, got, tt.want)
			}
		})
	}
}

func TestParseColor_Rejects(t *testing.T) {
	for _, css := range []string{
		"",
		"#ff000",
		"#gg0000",
		"rgb(1, 2)",
		"rgb(a, b, c)",
		"rgb(1, 2, 3",
		"hsl(120, 50%, 50%)",
		"chartreuse4",
	} {
		if _, ok := ParseColor(css); ok {
			t.Errorf("ParseColor(%q) accepted an invalid color", css)
		}
	}
}
