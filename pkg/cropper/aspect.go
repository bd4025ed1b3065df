package cropper

import (
	"fmt"
	"strconv"
	"strings"
)

// AspectRatio represents common aspect ratios
type AspectRatio struct {
	Width  int
	Height int
	Name   string
}

// Common aspect ratios
var (
	Square    = AspectRatio{1, 1, "square"}
	Portrait  = AspectRatio{3, 4, "portrait"}
	Instagram = AspectRatio{4, 5, "instagram"}
	Story     = AspectRatio{9, 16, "story"}
)

// CommonAspectRatios returns the vertical-friendly aspect ratios
func CommonAspectRatios() []AspectRatio {
	return []AspectRatio{Story, Instagram, Portrait, Square}
}

// Value returns width divided by height
func (a AspectRatio) Value() float64 {
	return float64(a.Width) / float64(a.Height)
}

// String returns the ratio as W:H
func (a AspectRatio) String() string {
	return fmt.Sprintf("%d:%d", a.Width, a.Height)
}

// ParseAspectRatio accepts a preset name ("story") or a W:H pair ("9:16")
func ParseAspectRatio(s string) (AspectRatio, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, a := range CommonAspectRatios() {
		if s == a.Name {
			return a, nil
		}
	}

	w, h, ok := strings.Cut(s, ":")
	if !ok {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio %q: want a preset name or W:H", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio width: %w", err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio height: %w", err)
	}
	if width <= 0 || height <= 0 {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio %q: sides must be positive", s)
	}
	return AspectRatio{Width: width, Height: height, Name: s}, nil
}
