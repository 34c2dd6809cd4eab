package surface

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadgeStyle_Measure(t *testing.T) {
	style := DefaultBadgeStyle()

	tests := []struct {
		text  string
		width int
	}{
		{"0", 7 + 32 + 1},
		{"42", 14 + 32 + 1},
		{"12345", 35 + 32 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, image.Pt(tt.width, 48), style.Measure(tt.text))
		})
	}
}

func TestBadgeStyle_Draw(t *testing.T) {
	style := DefaultBadgeStyle()
	dst := image.NewRGBA(image.Rect(0, 0, 200, 200))
	origin := image.Pt(100, 100)

	style.Draw(dst, origin, "7")

	// outside the badge is untouched
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(99, 99))

	// corner carries the translucent background
	corner := dst.RGBAAt(100, 100)
	assert.Equal(t, uint8(191), corner.A)
	assert.Equal(t, uint8(0), corner.R)

	size := style.Measure("7")
	var lit int
	for y := origin.Y; y < origin.Y+size.Y; y++ {
		for x := origin.X; x < origin.X+size.X; x++ {
			if dst.RGBAAt(x, y).R > 128 {
				lit++
			}
		}
	}
	assert.Positive(t, lit, "digit pixels should be drawn in the foreground color")
}

func TestContainer_MeasureStacksChildren(t *testing.T) {
	c := newContainer("c")
	assert.Equal(t, image.Point{}, c.Measure())

	a := newContent(nil, testInterval, DefaultBadgeStyle())
	c.children = append(c.children, a, newContent(nil, testInterval, DefaultBadgeStyle()))

	assert.Equal(t, image.Pt(40, 96), c.Measure())
}

func TestContainer_AddChildRequiresOwners(t *testing.T) {
	c := newContainer("c")
	err := c.AddChild(newContent(nil, testInterval, DefaultBadgeStyle()))
	assert.ErrorIs(t, err, errNoTreeOwner)
}
