package cv

import (
	"fmt"
	"image"
)

// Region is an axis-aligned rectangle in device-screen pixels.
// It covers the half-open area [Left, Left+Width) x [Top, Top+Height).
type Region struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// NewRegion creates a new region
func NewRegion(left, top, width, height int) Region {
	return Region{Left: left, Top: top, Width: width, Height: height}
}

// RegionFromRectangle converts an image.Rectangle into a Region
func RegionFromRectangle(r image.Rectangle) Region {
	return Region{Left: r.Min.X, Top: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Right returns the first column past the region
func (r Region) Right() int {
	return r.Left + r.Width
}

// Bottom returns the first row past the region
func (r Region) Bottom() int {
	return r.Top + r.Height
}

// Empty reports whether the region covers no pixels
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the integer centroid of the region
func (r Region) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// Contains checks if a point is within the region (right and bottom edges excluded)
func (r Region) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right() && p.Y >= r.Top && p.Y < r.Bottom()
}

// Within reports whether the region lies entirely inside bounds
func (r Region) Within(bounds image.Rectangle) bool {
	return r.Rectangle().In(bounds)
}

// Rectangle converts the region to an image.Rectangle
func (r Region) Rectangle() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right(), r.Bottom())
}

func (r Region) String() string {
	return fmt.Sprintf("(left=%d, top=%d, width=%d, height=%d)", r.Left, r.Top, r.Width, r.Height)
}

// Add returns p translated by (dx, dy)
func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}
