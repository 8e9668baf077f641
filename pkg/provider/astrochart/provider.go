// Package astrochart defines the Provider interface for the ephemeris
// backend that casts astrological charts.
//
// A chart is cast for a Subject: a moment in time at a place on Earth. The
// same call serves both radix and transit work, because a transit chart is
// simply a chart cast for the moment of interest at the same coordinates.
// Providers return placements only; aspect finding, profection arithmetic and
// report wording happen downstream.
package astrochart

import "context"

// Subject is the moment and place a chart is cast for. Latitude and
// Longitude use the sexagesimal text form common in astrological data
// ("38n58'56''", "094w40'14''"), and Timezone is an IANA zone name.
type Subject struct {
	// DateTime is the civil date and time in the subject's zone, in
	// "2006-01-02 15:04:05" form.
	DateTime  string `json:"date_time"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Timezone  string `json:"timezone"`

	// HouseSystem names the house division scheme, for example
	// "whole_sign". Empty means the backend's default.
	HouseSystem string `json:"house_system,omitempty"`
}

// Sign is a zodiac sign. Number counts from 1 at Aries through 12 at Pisces.
type Sign struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// House is one house of a cast chart, carrying the sign on its cusp.
// Name is the backend's display form, for example "2nd House".
type House struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Sign   Sign   `json:"sign"`
}

// Placement locates one chart object. House is the house the object
// occupies in its own chart.
type Placement struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// Object is one charted point: a planet, an angle, a node or an asteroid.
// Longitude is the ecliptic longitude in degrees within [0, 360), and Speed
// is the daily motion in degrees, negative while retrograde.
type Object struct {
	Index     int       `json:"index"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Sign      Sign      `json:"sign"`
	House     Placement `json:"house"`
}

// Chart is a cast chart: the charted objects and the houses of the chosen
// house system. Object and house order follows the backend's own ordering,
// which for houses is ascending by house number.
type Chart struct {
	Objects []Object `json:"objects"`
	Houses  []House  `json:"houses"`
}

// Provider is the abstraction over an ephemeris backend.
//
// Implementations must be safe for concurrent use and should propagate
// context cancellation promptly.
type Provider interface {
	// Cast computes the chart for the given subject.
	Cast(ctx context.Context, sub Subject) (*Chart, error)
}

// ObjectByName returns the charted object with the given name, or false
// when the chart does not carry it.
func (c *Chart) ObjectByName(name string) (Object, bool) {
	for _, obj := range c.Objects {
		if obj.Name == name {
			return obj, true
		}
	}
	return Object{}, false
}

// HouseByNumber returns the house with the given number, or false when the
// chart does not carry it.
func (c *Chart) HouseByNumber(number int) (House, bool) {
	for _, h := range c.Houses {
		if h.Number == number {
			return h, true
		}
	}
	return House{}, false
}

// HouseBySign returns the house whose cusp falls in the named sign, or
// false when no house does. Under whole-sign houses every sign maps to
// exactly one house.
func (c *Chart) HouseBySign(signName string) (House, bool) {
	for _, h := range c.Houses {
		if h.Sign.Name == signName {
			return h, true
		}
	}
	return House{}, false
}
