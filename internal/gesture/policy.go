package gesture

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"jordanella.com/offer-story-go/internal/cv"
)

// PointPolicy selects where inside a located region a gesture lands
type PointPolicy int

const (
	// Centered always uses the region's integer centroid
	Centered PointPolicy = iota
	// RandomWithinBounds samples uniformly from the half-open region
	RandomWithinBounds
	// RandomInclusive samples from [Left, Left+Width] x [Top, Top+Height].
	// Legacy behaviour: it can land one pixel outside the region.
	RandomInclusive
)

func (p PointPolicy) String() string {
	switch p {
	case Centered:
		return "centered"
	case RandomWithinBounds:
		return "random"
	case RandomInclusive:
		return "random_inclusive"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses a policy name from config or routine files
func ParsePolicy(s string) (PointPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "centered", "center", "centred":
		return Centered, nil
	case "random", "random_within_bounds", "":
		return RandomWithinBounds, nil
	case "random_inclusive", "inclusive":
		return RandomInclusive, nil
	default:
		return Centered, fmt.Errorf("unknown point policy %q", s)
	}
}

// UnmarshalText lets policies appear directly in yaml and ini values
func (p *PointPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p PointPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Offset is added to a resolved point before tapping
type Offset struct {
	DX int `yaml:"dx"`
	DY int `yaml:"dy"`
}

func resolve(region cv.Region, policy PointPolicy, rng *rand.Rand) cv.Point {
	switch policy {
	case RandomWithinBounds:
		if region.Empty() {
			return cv.Point{X: region.Left, Y: region.Top}
		}
		return cv.Point{
			X: region.Left + rng.IntN(region.Width),
			Y: region.Top + rng.IntN(region.Height),
		}
	case RandomInclusive:
		if region.Width < 0 || region.Height < 0 {
			return cv.Point{X: region.Left, Y: region.Top}
		}
		return cv.Point{
			X: region.Left + rng.IntN(region.Width+1),
			Y: region.Top + rng.IntN(region.Height+1),
		}
	default:
		return region.Center()
	}
}
