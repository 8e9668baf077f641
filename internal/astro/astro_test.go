package astro_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/NWeiss87/auricle/internal/astro"
	"github.com/NWeiss87/auricle/pkg/provider/astrochart"
	chartmock "github.com/NWeiss87/auricle/pkg/provider/astrochart/mock"
)

const (
	natalDateTime  = "1987-03-21 06:45:00"
	natalChartLat  = 38.9822
	natalChartLon  = -94.6706
	natalChartZone = "America/Chicago"
)

var houseNames = []string{
	"1st House", "2nd House", "3rd House", "4th House", "5th House",
	"6th House", "7th House", "8th House", "9th House", "10th House",
	"11th House", "12th House",
}

// natalHouses lays out whole-sign houses with Leo rising.
func natalHouses() []astrochart.House {
	signs := []astrochart.Sign{
		{Number: 5, Name: "Leo"}, {Number: 6, Name: "Virgo"},
		{Number: 7, Name: "Libra"}, {Number: 8, Name: "Scorpio"},
		{Number: 9, Name: "Sagittarius"}, {Number: 10, Name: "Capricorn"},
		{Number: 11, Name: "Aquarius"}, {Number: 12, Name: "Pisces"},
		{Number: 1, Name: "Aries"}, {Number: 2, Name: "Taurus"},
		{Number: 3, Name: "Gemini"}, {Number: 4, Name: "Cancer"},
	}
	houses := make([]astrochart.House, 0, len(signs))
	for i, sign := range signs {
		houses = append(houses, astrochart.House{Number: i + 1, Name: houseNames[i], Sign: sign})
	}
	return houses
}

func natalChart() *astrochart.Chart {
	return &astrochart.Chart{
		Objects: []astrochart.Object{
			{Name: "Sun", Type: "Planet", Longitude: 10, Sign: astrochart.Sign{Number: 1, Name: "Aries"}, House: astrochart.Placement{Number: 9, Name: "9th House"}},
			{Name: "Moon", Type: "Planet", Longitude: 113, Sign: astrochart.Sign{Number: 4, Name: "Cancer"}, House: astrochart.Placement{Number: 12, Name: "12th House"}},
			{Name: "Mercury", Type: "Planet", Longitude: 334, Sign: astrochart.Sign{Number: 12, Name: "Pisces"}, House: astrochart.Placement{Number: 8, Name: "8th House"}},
			{Name: "Venus", Type: "Planet", Longitude: 47, Sign: astrochart.Sign{Number: 2, Name: "Taurus"}, House: astrochart.Placement{Number: 10, Name: "10th House"}},
			{Name: "Mars", Type: "Planet", Longitude: 86, Sign: astrochart.Sign{Number: 3, Name: "Gemini"}, House: astrochart.Placement{Number: 11, Name: "11th House"}},
			{Name: "Jupiter", Type: "Planet", Longitude: 218, Sign: astrochart.Sign{Number: 8, Name: "Scorpio"}, House: astrochart.Placement{Number: 4, Name: "4th House"}},
			{Name: "Saturn", Type: "Planet", Longitude: 259, Sign: astrochart.Sign{Number: 9, Name: "Sagittarius"}, House: astrochart.Placement{Number: 5, Name: "5th House"}},
			{Name: "True South Node", Type: "Point", Longitude: 100, Sign: astrochart.Sign{Number: 4, Name: "Cancer"}, House: astrochart.Placement{Number: 12, Name: "12th House"}},
		},
		Houses: natalHouses(),
	}
}

func newTestService(t *testing.T, charts *chartmock.Provider, fortune, spirit *astro.PeriodTable) *astro.Service {
	t.Helper()
	svc, err := astro.NewService(charts, astro.Config{
		NatalDate:      "1987-03-21",
		NatalTime:      "06:45",
		Latitude:       natalChartLat,
		Longitude:      natalChartLon,
		Timezone:       natalChartZone,
		Orb:            2,
		FortunePeriods: fortune,
		SpiritPeriods:  spirit,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return string(data)
}

func TestBlockValue(t *testing.T) {
	t.Parallel()

	block := astro.Block{
		Key:          astro.TransitsKey,
		SystemPrompt: "prompt",
		ResultsKey:   "transits_json",
		Results:      map[string]int{"number_of_transits": 0},
	}
	got := marshal(t, block.Value())
	want := `{"model_results":{"system_prompt":"prompt","transits_json":{"number_of_transits":0},"interpretation":""}}`
	if got != want {
		t.Errorf("Block.Value() = %s, want %s", got, want)
	}
}

func TestNewServiceRequiresProvider(t *testing.T) {
	t.Parallel()

	if _, err := astro.NewService(nil, astro.Config{NatalDate: "1987-03-21", NatalTime: "06:45"}); err == nil {
		t.Error("NewService(nil) error = nil, want error")
	}
}

func TestNewServiceRejectsBadNatalDate(t *testing.T) {
	t.Parallel()

	_, err := astro.NewService(&chartmock.Provider{}, astro.Config{NatalDate: "21.03.1987", NatalTime: "06:45"})
	if err == nil {
		t.Fatal("NewService() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "natal date") {
		t.Errorf("NewService() error = %q, want mention of natal date", err)
	}
}

func TestNatalSubject(t *testing.T) {
	t.Parallel()

	charts := &chartmock.Provider{CastResult: natalChart()}
	svc := newTestService(t, charts, nil, nil)

	at := time.Date(2025, 7, 4, 17, 18, 37, 0, time.UTC)
	if _, err := svc.Transits(context.Background(), at); err != nil {
		t.Fatalf("Transits() error = %v", err)
	}
	if len(charts.CastCalls) != 2 {
		t.Fatalf("len(CastCalls) = %d, want 2", len(charts.CastCalls))
	}

	natal := charts.CastCalls[0]
	want := astrochart.Subject{
		DateTime:    natalDateTime,
		Latitude:    "38n58'56''",
		Longitude:   "094w40'14''",
		Timezone:    natalChartZone,
		HouseSystem: "whole_sign",
	}
	if natal != want {
		t.Errorf("natal subject = %+v, want %+v", natal, want)
	}
	if got := charts.CastCalls[1].DateTime; got != "2025-07-04 17:18:37" {
		t.Errorf("transit subject datetime = %q, want %q", got, "2025-07-04 17:18:37")
	}
}
