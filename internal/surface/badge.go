package surface

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// BadgeStyle is the look of the counter badge.
type BadgeStyle struct {
	Height     int
	PaddingX   int
	Background color.Color
	Foreground color.Color
	Face       font.Face
	Bold       bool
}

// DefaultBadgeStyle is a 48px translucent black badge with white bold digits.
func DefaultBadgeStyle() BadgeStyle {
	return BadgeStyle{
		Height:     48,
		PaddingX:   16,
		Background: color.NRGBA{A: 191}, // 75% black
		Foreground: color.White,
		Face:       basicfont.Face7x13,
		Bold:       true,
	}
}

// Measure returns the badge size for text.
func (s BadgeStyle) Measure(text string) image.Point {
	w := font.MeasureString(s.Face, text).Ceil() + 2*s.PaddingX
	if s.Bold {
		w++
	}
	return image.Pt(w, s.Height)
}

// Draw renders text centered vertically inside the badge at origin.
func (s BadgeStyle) Draw(dst draw.Image, origin image.Point, text string) {
	size := s.Measure(text)
	bounds := image.Rectangle{Min: origin, Max: origin.Add(size)}
	draw.Draw(dst, bounds, image.NewUniform(s.Background), image.Point{}, draw.Over)

	m := s.Face.Metrics()
	textHeight := (m.Ascent + m.Descent).Ceil()
	baseline := origin.Y + (s.Height-textHeight)/2 + m.Ascent.Ceil()

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(s.Foreground),
		Face: s.Face,
		Dot:  fixed.P(origin.X+s.PaddingX, baseline),
	}
	d.DrawString(text)

	// Faux extra-bold: overdraw one pixel to the right.
	if s.Bold {
		d.Dot = fixed.P(origin.X+s.PaddingX+1, baseline)
		d.DrawString(text)
	}
}
