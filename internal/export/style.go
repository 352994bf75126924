package export

import (
	"image/color"
	"strconv"
	"strings"

	"markup/internal/domain"
)

var namedColors = map[string]color.RGBA{
	"black":        {0x1d, 0x1d, 0x1d, 0xff},
	"grey":         {0x9f, 0xa8, 0xb2, 0xff},
	"light-violet": {0xe0, 0x85, 0xf4, 0xff},
	"violet":       {0xae, 0x3e, 0xc9, 0xff},
	"blue":         {0x44, 0x65, 0xe9, 0xff},
	"light-blue":   {0x4b, 0xa1, 0xf1, 0xff},
	"yellow":       {0xf1, 0xac, 0x4b, 0xff},
	"orange":       {0xe1, 0x69, 0x19, 0xff},
	"green":        {0x09, 0x92, 0x68, 0xff},
	"light-green":  {0x4c, 0xb0, 0x5e, 0xff},
	"light-red":    {0xf8, 0x70, 0x77, 0xff},
	"red":          {0xe0, 0x31, 0x31, 0xff},
	"white":        {0xff, 0xff, 0xff, 0xff},
}

// parseColor accepts a palette name or #rrggbb.
func parseColor(v any, fallback color.RGBA) color.RGBA {
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	if c, ok := namedColors[s]; ok {
		return c
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return fallback
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}
}

var strokeSizes = map[string]float64{"s": 2, "m": 3.5, "l": 5, "xl": 10}
var fontSizes = map[string]float64{"s": 18, "m": 24, "l": 36, "xl": 44}

// sizeProp reads a size given as a number or as an s/m/l/xl token.
func sizeProp(v any, table map[string]float64, fallback float64) float64 {
	switch x := v.(type) {
	case float64:
		if x > 0 {
			return x
		}
	case int:
		if x > 0 {
			return float64(x)
		}
	case string:
		if f, ok := table[x]; ok {
			return f
		}
	}
	return fallback
}

func floatProp(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}

// pointsProp reads a polyline stored either as []domain.Vec or as the
// decoded JSON form []any of {"x", "y"} objects.
func pointsProp(v any) []domain.Vec {
	switch pts := v.(type) {
	case []domain.Vec:
		return pts
	case []any:
		out := make([]domain.Vec, 0, len(pts))
		for _, p := range pts {
			m, ok := p.(map[string]any)
			if !ok {
				continue
			}
			x, okx := floatProp(m["x"])
			y, oky := floatProp(m["y"])
			if okx && oky {
				out = append(out, domain.Vec{X: x, Y: y})
			}
		}
		return out
	}
	return nil
}
