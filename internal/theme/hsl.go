package theme

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// FallbackHSL is used for colors that are not six hex digits
const FallbackHSL = "25 95% 53%"

var hexColor = regexp.MustCompile(`(?i)^#?([a-f\d]{2})([a-f\d]{2})([a-f\d]{2})$`)

// HexToHSL converts "#RRGGBB" to an "H S% L%" triple rounded to whole
// degrees and percents.
func HexToHSL(hex string) string {
	m := hexColor.FindStringSubmatch(hex)
	if m == nil {
		return FallbackHSL
	}

	r := channel(m[1])
	g := channel(m[2])
	b := channel(m[3])

	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	l := (hi + lo) / 2

	var h, s float64
	if hi != lo {
		d := hi - lo
		if l > 0.5 {
			s = d / (2 - hi - lo)
		} else {
			s = d / (hi + lo)
		}

		switch hi {
		case r:
			h = (g - b) / d
			if g < b {
				h += 6
			}
		case g:
			h = (b-r)/d + 2
		default:
			h = (r-g)/d + 4
		}
		h /= 6
	}

	return fmt.Sprintf("%d %d%% %d%%", int(math.Round(h*360)), int(math.Round(s*100)), int(math.Round(l*100)))
}

func channel(hex string) float64 {
	v, _ := strconv.ParseUint(hex, 16, 8)
	return float64(v) / 255
}
