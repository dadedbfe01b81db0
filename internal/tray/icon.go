package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log"
)

// iconSize is the edge of the generated tray icons in pixels.
const iconSize = 22

var (
	iconPrimary   = renderIcon(color.NRGBA{R: 0x2b, G: 0x8a, B: 0xc4, A: 0xff})
	iconAlternate = renderIcon(color.NRGBA{R: 0xf0, G: 0x8a, B: 0x24, A: 0xff})
)

// renderIcon draws a filled disc and encodes it as PNG.
func renderIcon(c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	r := float64(iconSize)/2 - 1
	center := float64(iconSize) / 2
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx := float64(x) + 0.5 - center
			dy := float64(y) + 0.5 - center
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Printf("[tray] Failed to encode icon: %v", err)
		return nil
	}
	return buf.Bytes()
}
