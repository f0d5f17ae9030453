package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gravitational/trace"
)

// Colour is the accent colour of an embed
type Colour struct {
	R, G, B uint8
}

// ParseColour reads a colour written as six hex digits, optionally preceded by #
func ParseColour(code string) (Colour, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(code), "#")
	if len(hex) != 6 {
		return Colour{}, trace.BadParameter("colour %q must have six hex digits, like #00AAFF", code)
	}
	var components [3]uint8
	for i := range components {
		value, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return Colour{}, trace.BadParameter("colour %q is not a hex code, like #00AAFF", code)
		}
		components[i] = uint8(value)
	}
	return Colour{R: components[0], G: components[1], B: components[2]}, nil
}

// Int packs the colour the way discord expects it
func (colour Colour) Int() int {
	return int(colour.R)<<16 | int(colour.G)<<8 | int(colour.B)
}

func (colour Colour) String() string {
	return fmt.Sprintf("#%02X%02X%02X", colour.R, colour.G, colour.B)
}
