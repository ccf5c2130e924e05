package theme

import (
	"image/color"
)

// Theme defines the colours of the viewer chrome. Annotation colours are
// chosen per record and are not themed.
type Theme struct {
	Name string

	// General
	Background color.RGBA // Area behind the pages
	Foreground color.RGBA // Status and message text

	// Header & toolbar
	ToolbarBackground color.RGBA
	HeaderBackground  color.RGBA
	HeaderText        color.RGBA

	// Tool buttons
	ButtonBackground      color.RGBA
	ButtonBackgroundHover color.RGBA
	ButtonBackgroundPress color.RGBA
	ButtonText            color.RGBA
	ButtonTextDisabled    color.RGBA // Premium tools without a license
	ButtonBorder          color.RGBA

	// Pages
	PageBorder color.RGBA
	Selection  color.RGBA // Outline of the in-progress gesture
	Caret      color.RGBA // Text input cursor
}

// Default returns the hardcoded default light theme (fallback).
func Default() *Theme {
	return &Theme{
		Name:                  "Default",
		Background:            color.RGBA{128, 128, 128, 255},
		Foreground:            color.RGBA{0, 0, 0, 255},
		ToolbarBackground:     color.RGBA{220, 220, 220, 255},
		HeaderBackground:      color.RGBA{220, 220, 220, 255},
		HeaderText:            color.RGBA{0, 0, 0, 255},
		ButtonBackground:      color.RGBA{200, 200, 200, 255},
		ButtonBackgroundHover: color.RGBA{180, 180, 180, 255},
		ButtonBackgroundPress: color.RGBA{150, 150, 150, 255},
		ButtonText:            color.RGBA{0, 0, 0, 255},
		ButtonTextDisabled:    color.RGBA{120, 120, 120, 255},
		ButtonBorder:          color.RGBA{0, 0, 0, 255},
		PageBorder:            color.RGBA{90, 90, 90, 255},
		Selection:             color.RGBA{0, 120, 215, 255},
		Caret:                 color.RGBA{0, 0, 0, 255},
	}
}
