package astro_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NWeiss87/auricle/internal/astro"
	"github.com/NWeiss87/auricle/pkg/provider/astrochart"
	chartmock "github.com/NWeiss87/auricle/pkg/provider/astrochart/mock"
)

// transitChart places transiting Mars at 190.5 and Venus at 130 degrees:
// Mars opposes the natal Sun (10) within half a degree and squares the natal
// South Node (100), Venus trines the natal Sun exactly and squares natal
// Jupiter (218) right at the 2 degree orb.
func transitChart() *astrochart.Chart {
	return &astrochart.Chart{
		Objects: []astrochart.Object{
			{Name: "Mars", Type: "Planet", Longitude: 190.5, Sign: astrochart.Sign{Number: 7, Name: "Libra"}},
			{Name: "Venus", Type: "Planet", Longitude: 130, Sign: astrochart.Sign{Number: 5, Name: "Leo"}},
		},
		Houses: natalHouses(),
	}
}

func transitCharts() *chartmock.Provider {
	return &chartmock.Provider{
		CastByDateTime: map[string]*astrochart.Chart{
			natalDateTime:         natalChart(),
			"2025-07-04 17:18:37": transitChart(),
		},
	}
}

func TestTransits(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, transitCharts(), nil, nil)
	at := time.Date(2025, 7, 4, 17, 18, 37, 0, time.UTC)

	block, err := svc.Transits(context.Background(), at)
	if err != nil {
		t.Fatalf("Transits() error = %v", err)
	}
	if block.Key != astro.TransitsKey {
		t.Errorf("block key = %q, want %q", block.Key, astro.TransitsKey)
	}
	if block.ResultsKey != "transits_json" {
		t.Errorf("results key = %q, want %q", block.ResultsKey, "transits_json")
	}
	if block.Interpretation != "" {
		t.Errorf("interpretation = %q, want empty", block.Interpretation)
	}
	if !strings.Contains(block.SystemPrompt, "professional astrologer") {
		t.Errorf("system prompt = %q, want astrologer framing", block.SystemPrompt)
	}

	report, ok := block.Results.(astro.TransitReport)
	if !ok {
		t.Fatalf("results type = %T, want astro.TransitReport", block.Results)
	}
	if report.Datetime != "2025-07-04T17:18:37" {
		t.Errorf("datetime = %q, want %q", report.Datetime, "2025-07-04T17:18:37")
	}
	if report.NumberOfTransits != 3 || len(report.Transits) != 3 || len(report.AllTransitsText) != 3 {
		t.Fatalf("got %d transits (%d texts, count %d), want 3",
			len(report.Transits), len(report.AllTransitsText), report.NumberOfTransits)
	}

	want := []astro.Transit{
		{
			TransitPoint: "Mars", TransitPointHouse: "3rd House", TransitPointSign: "Libra",
			AspectType: "Opposition",
			NatalPoint: "Sun", NatalPointHouse: "9th House", NatalPointSign: "Aries",
			Orb:  -0.5,
			Text: "Transiting Mars Opposition Natal Sun. Transiting Mars is in the 3rd House and is in Libra. Natal Sun is in the 9th House and is in Aries.",
		},
		{
			TransitPoint: "Venus", TransitPointHouse: "1st House", TransitPointSign: "Leo",
			AspectType: "Trine",
			NatalPoint: "Sun", NatalPointHouse: "9th House", NatalPointSign: "Aries",
			Orb:  0,
			Text: "Transiting Venus Trine Natal Sun. Transiting Venus is in the 1st House and is in Leo. Natal Sun is in the 9th House and is in Aries.",
		},
		{
			TransitPoint: "Venus", TransitPointHouse: "1st House", TransitPointSign: "Leo",
			AspectType: "Square",
			NatalPoint: "Jupiter", NatalPointHouse: "4th House", NatalPointSign: "Scorpio",
			Orb:  -2,
			Text: "Transiting Venus Square Natal Jupiter. Transiting Venus is in the 1st House and is in Leo. Natal Jupiter is in the 4th House and is in Scorpio.",
		},
	}
	for i, w := range want {
		if report.Transits[i] != w {
			t.Errorf("transit[%d] = %+v, want %+v", i, report.Transits[i], w)
		}
		if report.AllTransitsText[i] != w.Text {
			t.Errorf("text[%d] = %q, want %q", i, report.AllTransitsText[i], w.Text)
		}
	}
	for _, tr := range report.Transits {
		if strings.Contains(tr.Text, "South Node") {
			t.Errorf("South Node aspect not dropped: %q", tr.Text)
		}
	}
}

func TestTransitsWireFormat(t *testing.T) {
	t.Parallel()

	tr := astro.Transit{
		TransitPoint: "Mars", TransitPointHouse: "3rd House", TransitPointSign: "Libra",
		AspectType: "Opposition",
		NatalPoint: "Sun", NatalPointHouse: "9th House", NatalPointSign: "Aries",
		Orb: -0.5, Text: "t",
	}
	got := marshal(t, tr)
	want := `{"transit_point":"Mars","transit_point_house":"3rd House","transit_point_sign":"Libra",` +
		`"aspect_type":"Opposition","natal_point":"Sun","natal_point_house":"9th House",` +
		`"natal_point_sign":"Aries","orb":-0.5,"text":"t"}`
	if got != want {
		t.Errorf("transit JSON = %s, want %s", got, want)
	}
}

func TestTransitsCastsNatalOnce(t *testing.T) {
	t.Parallel()

	charts := transitCharts()
	svc := newTestService(t, charts, nil, nil)
	at := time.Date(2025, 7, 4, 17, 18, 37, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if _, err := svc.Transits(context.Background(), at); err != nil {
			t.Fatalf("Transits() #%d error = %v", i+1, err)
		}
	}
	natalCasts := 0
	for _, call := range charts.CastCalls {
		if call.DateTime == natalDateTime {
			natalCasts++
		}
	}
	if natalCasts != 1 {
		t.Errorf("natal chart cast %d times, want 1", natalCasts)
	}
	if len(charts.CastCalls) != 3 {
		t.Errorf("len(CastCalls) = %d, want 3", len(charts.CastCalls))
	}
}

func TestTransitsCastError(t *testing.T) {
	t.Parallel()

	castErr := errors.New("ephemeris down")
	svc := newTestService(t, &chartmock.Provider{CastErr: castErr}, nil, nil)

	_, err := svc.Transits(context.Background(), time.Date(2025, 7, 4, 17, 18, 37, 0, time.UTC))
	if !errors.Is(err, castErr) {
		t.Errorf("Transits() error = %v, want wrapped %v", err, castErr)
	}
}
