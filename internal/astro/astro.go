// Package astro produces the astrological enrichment blocks appended to a
// chunk's analysis: transit aspects against the natal chart, annual, monthly
// and 2.5-day profections, and zodiacal releasing periods from precomputed
// tables.
//
// Chart placements come from an [astrochart.Provider]; everything else is
// arithmetic over the placements. Each technique returns a [Block] that
// serializes under its own chunk_analysis key with a system prompt and an
// interpretation slot the optional interpretation step may fill.
package astro

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/NWeiss87/auricle/internal/timeline"
	"github.com/NWeiss87/auricle/pkg/provider/astrochart"
)

// Chunk analysis keys for the three enrichment blocks. The releasing key
// preserves a historical misspelling that existing journal archives match on.
const (
	TransitsKey    = "generate_chunk_transits"
	ProfectionsKey = "generate_chunk_profections"
	ReleasingKey   = "generte_chunk_zrs"
)

// ErrNoReleasingTables is returned by Releasing when the service was built
// without period tables.
var ErrNoReleasingTables = errors.New("astro: releasing period tables not configured")

// Provider is the abstraction the batch pipeline consumes. Implementations
// must be safe for concurrent use.
type Provider interface {
	// Transits reports aspects between the chart at t and the natal chart.
	Transits(ctx context.Context, t time.Time) (Block, error)

	// Profections reports the annual, monthly and 2.5-day profections
	// active at t.
	Profections(ctx context.Context, t time.Time) (Block, error)

	// Releasing reports the zodiacal releasing periods active at t.
	Releasing(ctx context.Context, t time.Time) (Block, error)
}

// Block is one enrichment destined for a chunk's analysis map.
type Block struct {
	// Key is the chunk_analysis key the block lands under.
	Key string

	// SystemPrompt seeds the optional LLM interpretation of the payload.
	SystemPrompt string

	// ResultsKey names the payload field inside the envelope, for example
	// "profections_json".
	ResultsKey string

	// Results is the technique payload placed under ResultsKey.
	Results any

	// Interpretation is empty until the interpretation step fills it.
	Interpretation string
}

// Value renders the block in wire form:
//
//	{"model_results": {"system_prompt": ..., <results_key>: ..., "interpretation": ...}}
func (b Block) Value() *orderedmap.OrderedMap[string, any] {
	inner := orderedmap.New[string, any]()
	inner.Set("system_prompt", b.SystemPrompt)
	inner.Set(b.ResultsKey, b.Results)
	inner.Set("interpretation", b.Interpretation)

	out := orderedmap.New[string, any]()
	out.Set("model_results", inner)
	return out
}

// Config holds the natal anchor and technique settings for a [Service].
type Config struct {
	// NatalDate and NatalTime anchor the natal chart, as "2006-01-02" and
	// "15:04" (seconds accepted).
	NatalDate string
	NatalTime string

	// Latitude and Longitude locate the birth place in decimal degrees,
	// north and east positive.
	Latitude  float64
	Longitude float64

	// Timezone is the IANA zone charts are cast in.
	Timezone string

	// Orb is the maximum orb in degrees for transit aspects. Zero means
	// 2.0.
	Orb float64

	// FortunePeriods and SpiritPeriods are the loaded releasing tables.
	// Both nil disables Releasing.
	FortunePeriods *PeriodTable
	SpiritPeriods  *PeriodTable
}

// Service implements [Provider] on top of a chart backend. The natal chart
// is cast once on first use and reused for every chunk.
type Service struct {
	charts astrochart.Provider
	cfg    Config
	birth  time.Time
	orb    float64

	natalOnce sync.Once
	natal     *astrochart.Chart
	natalErr  error
}

var _ Provider = (*Service)(nil)

// NewService builds a Service over the given chart backend.
func NewService(charts astrochart.Provider, cfg Config) (*Service, error) {
	if charts == nil {
		return nil, errors.New("astro: chart provider is required")
	}
	birth, err := parseNatal(cfg.NatalDate, cfg.NatalTime)
	if err != nil {
		return nil, err
	}
	orb := cfg.Orb
	if orb <= 0 {
		orb = 2.0
	}
	return &Service{charts: charts, cfg: cfg, birth: birth, orb: orb}, nil
}

func parseNatal(date, clock string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, date+" "+clock); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("astro: invalid natal date/time %q %q", date, clock)
}

// natalChart casts and memoizes the natal chart.
func (s *Service) natalChart(ctx context.Context) (*astrochart.Chart, error) {
	s.natalOnce.Do(func() {
		s.natal, s.natalErr = s.charts.Cast(ctx, s.subjectAt(s.birth))
		if s.natalErr != nil {
			s.natalErr = fmt.Errorf("astro: cast natal chart: %w", s.natalErr)
		}
	})
	return s.natal, s.natalErr
}

// subjectAt builds the chart subject for an instant at the natal
// coordinates. Whole-sign houses are fixed: the profection and transit
// house lookups depend on every sign mapping to exactly one house.
func (s *Service) subjectAt(t time.Time) astrochart.Subject {
	return astrochart.Subject{
		DateTime:    t.Format("2006-01-02 15:04:05"),
		Latitude:    sexagesimal(s.cfg.Latitude, "n", "s", 2),
		Longitude:   sexagesimal(s.cfg.Longitude, "e", "w", 3),
		Timezone:    s.cfg.Timezone,
		HouseSystem: "whole_sign",
	}
}

// sexagesimal renders decimal degrees in the chart-service coordinate form,
// for example 38.9822 -> "38n58'56''" and -94.6706 -> "094w40'14''".
func sexagesimal(deg float64, pos, neg string, width int) string {
	hemi := pos
	if deg < 0 {
		hemi = neg
		deg = -deg
	}
	d := int(deg)
	mf := (deg - float64(d)) * 60
	m := int(mf)
	sec := int(math.Round((mf - float64(m)) * 60))
	if sec == 60 {
		sec = 0
		m++
	}
	if m == 60 {
		m = 0
		d++
	}
	return fmt.Sprintf("%0*d%s%d'%d''", width, d, hemi, m, sec)
}

// zodiacSigns indexes sign names by their 1-based chart number.
var zodiacSigns = [...]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// signRulers maps each sign to its traditional ruling planet.
var signRulers = map[string]string{
	"Aries":       "Mars",
	"Taurus":      "Venus",
	"Gemini":      "Mercury",
	"Cancer":      "Moon",
	"Leo":         "Sun",
	"Virgo":       "Mercury",
	"Libra":       "Venus",
	"Scorpio":     "Mars",
	"Sagittarius": "Jupiter",
	"Capricorn":   "Saturn",
	"Aquarius":    "Saturn",
	"Pisces":      "Jupiter",
}

// signName returns the name for a 1-based sign number, wrapping around the
// zodiac.
func signName(number int) string {
	return zodiacSigns[mod12(number-1)]
}

// mod12 is a floored modulo: the result is always in [0, 12).
func mod12(n int) int {
	return ((n % 12) + 12) % 12
}

// formatTarget renders an instant the way the journal stores calendar
// datetimes.
func formatTarget(t time.Time) string {
	return timeline.Format(t)
}
