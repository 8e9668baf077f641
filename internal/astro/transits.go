package astro

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NWeiss87/auricle/pkg/provider/astrochart"
)

// Transit is one aspect between a transiting point and a natal point.
type Transit struct {
	TransitPoint      string  `json:"transit_point"`
	TransitPointHouse string  `json:"transit_point_house"`
	TransitPointSign  string  `json:"transit_point_sign"`
	AspectType        string  `json:"aspect_type"`
	NatalPoint        string  `json:"natal_point"`
	NatalPointHouse   string  `json:"natal_point_house"`
	NatalPointSign    string  `json:"natal_point_sign"`
	Orb               float64 `json:"orb"`
	Text              string  `json:"text"`
}

// TransitReport is the transits payload for one chunk.
type TransitReport struct {
	Datetime         string    `json:"datetime_of_transits"`
	Transits         []Transit `json:"transits"`
	NumberOfTransits int       `json:"number_of_transits"`
	AllTransitsText  []string  `json:"all_transits_text"`
}

// majorAspects lists the recognized aspect angles in ascending order.
var majorAspects = []struct {
	angle float64
	name  string
}{
	{0, "Conjunction"},
	{60, "Sextile"},
	{90, "Square"},
	{120, "Trine"},
	{180, "Opposition"},
}

// Transits casts a chart for t and reports every major aspect its points
// make to the natal chart, within the configured orb. Aspects involving the
// South Node are dropped.
func (s *Service) Transits(ctx context.Context, t time.Time) (Block, error) {
	natal, err := s.natalChart(ctx)
	if err != nil {
		return Block{}, err
	}
	transit, err := s.charts.Cast(ctx, s.subjectAt(t))
	if err != nil {
		return Block{}, fmt.Errorf("astro: cast transit chart: %w", err)
	}

	found := []Transit{}
	texts := []string{}
	for _, from := range transit.Objects {
		for _, base := range natal.Objects {
			name, diff, ok := aspectBetween(from.Longitude, base.Longitude, s.orb)
			if !ok {
				continue
			}
			tr := describeTransit(natal, from, base, name, diff)
			if strings.Contains(tr.Text, "South Node") {
				continue
			}
			found = append(found, tr)
			texts = append(texts, tr.Text)
		}
	}

	return Block{
		Key:          TransitsKey,
		SystemPrompt: transitsPrompt,
		ResultsKey:   "transits_json",
		Results: TransitReport{
			Datetime:         formatTarget(t),
			Transits:         found,
			NumberOfTransits: len(texts),
			AllTransitsText:  texts,
		},
	}, nil
}

// aspectBetween classifies the angular separation of two longitudes. The
// returned difference is the signed offset from the exact aspect angle.
func aspectBetween(a, b, orb float64) (string, float64, bool) {
	sep := math.Abs(math.Mod(a-b+540, 360) - 180)
	for _, asp := range majorAspects {
		if diff := sep - asp.angle; math.Abs(diff) <= orb {
			return asp.name, diff, true
		}
	}
	return "", 0, false
}

// describeTransit resolves houses and signs for one aspect. The transiting
// point's house is the natal house carrying the sign the point currently
// occupies, which is well defined under whole-sign houses.
func describeTransit(natal *astrochart.Chart, from, base astrochart.Object, aspect string, diff float64) Transit {
	transitHouse := ""
	if h, ok := natal.HouseBySign(from.Sign.Name); ok {
		transitHouse = h.Name
	}
	text := fmt.Sprintf(
		"Transiting %s %s Natal %s. Transiting %s is in the %s and is in %s. Natal %s is in the %s and is in %s.",
		from.Name, aspect, base.Name,
		from.Name, transitHouse, from.Sign.Name,
		base.Name, base.House.Name, base.Sign.Name,
	)
	return Transit{
		TransitPoint:      from.Name,
		TransitPointHouse: transitHouse,
		TransitPointSign:  from.Sign.Name,
		AspectType:        aspect,
		NatalPoint:        base.Name,
		NatalPointHouse:   base.House.Name,
		NatalPointSign:    base.Sign.Name,
		Orb:               diff,
		Text:              text,
	}
}
