package astro

import (
	"context"
	"fmt"
	"math"
	"time"
)

// AnnualProfection describes the profected year.
type AnnualProfection struct {
	ProfectedHouse      int    `json:"profected_house"`
	NatalHouseActivated int    `json:"natal_house_activated"`
	Sign                string `json:"sign"`
	Ruler               string `json:"ruler"`
}

// MonthlyProfection describes the profected month and where its ruler sits,
// counted from the monthly sign.
type MonthlyProfection struct {
	ProfectedHouse              int    `json:"profected_house"`
	NatalHouseActivated         int    `json:"natal_house_activated"`
	Sign                        string `json:"sign"`
	RulerPlanet                 string `json:"ruler_planet"`
	RulerLocationByMonthlyHouse int    `json:"ruler_location_by_monthly_house"`
	RulerLocationSign           string `json:"ruler_location_sign"`
}

// DailyProfection describes the 2.5-day profection inside the current
// profected month. ProfectedHouse is the 1-based index of the 2.5-day step.
type DailyProfection struct {
	ProfectedHouse            int    `json:"profected_house"`
	NatalHouseActivated       int    `json:"natal_house_activated"`
	Sign                      string `json:"sign"`
	RulerPlanet               string `json:"ruler_planet"`
	RulerLocationByDailyHouse int    `json:"ruler_location_by_daily_house"`
	RulerLocationSign         string `json:"ruler_location_sign"`
}

// ProfectionLevels bundles the three time scales.
type ProfectionLevels struct {
	Annual  AnnualProfection  `json:"annual"`
	Monthly MonthlyProfection `json:"monthly"`
	Daily   DailyProfection   `json:"daily"`
}

// ProfectionReport is the profections payload for one chunk.
type ProfectionReport struct {
	TargetDate  string           `json:"target_date"`
	Profections ProfectionLevels `json:"profections"`
}

// Profections computes the annual, monthly and 2.5-day profections active
// at t. The year advances one sign from the ascendant per completed year of
// life, the month one sign per birthday-anchored month inside the year, and
// the 2.5-day step one sign per 2.5 days inside the month.
func (s *Service) Profections(ctx context.Context, t time.Time) (Block, error) {
	natal, err := s.natalChart(ctx)
	if err != nil {
		return Block{}, err
	}
	first, ok := natal.HouseByNumber(1)
	if !ok {
		return Block{}, fmt.Errorf("astro: natal chart has no first house")
	}
	asc := first.Sign.Number

	years := t.Year() - s.birth.Year()
	if int(t.Month())*100+t.Day() < int(s.birth.Month())*100+s.birth.Day() {
		years--
	}
	annualSign := mod12(asc+years-1) + 1
	annualHouse := mod12(annualSign-asc) + 1

	var monthOffset int
	if t.Day() >= s.birth.Day() {
		monthOffset = mod12(int(t.Month()) - int(s.birth.Month()))
	} else {
		monthOffset = mod12(int(t.Month()) - int(s.birth.Month()) - 1)
	}
	monthlySign := mod12(annualSign+monthOffset-1) + 1
	monthlyHouse := mod12(monthlySign-asc) + 1
	annualMonthlyHouse := mod12(monthlySign-annualSign) + 1

	monthlyRuler := signRulers[signName(monthlySign)]
	monthlyRulerObj, ok := natal.ObjectByName(monthlyRuler)
	if !ok {
		return Block{}, fmt.Errorf("astro: natal chart has no %s", monthlyRuler)
	}
	monthlyRulerHouse := mod12(monthlyRulerObj.Sign.Number-monthlySign) + 1

	step := dailyStep(t, s.birth.Day())
	dailySign := mod12(monthlySign+step-1) + 1
	dailyRuler := signRulers[signName(dailySign)]
	dailyRulerObj, ok := natal.ObjectByName(dailyRuler)
	if !ok {
		return Block{}, fmt.Errorf("astro: natal chart has no %s", dailyRuler)
	}
	dailyRulerHouse := mod12(dailyRulerObj.Sign.Number-dailySign) + 1
	dailyNatalHouse := mod12(dailySign-asc) + 1

	return Block{
		Key:          ProfectionsKey,
		SystemPrompt: profectionsPrompt,
		ResultsKey:   "profections_json",
		Results: ProfectionReport{
			TargetDate: formatTarget(t),
			Profections: ProfectionLevels{
				Annual: AnnualProfection{
					ProfectedHouse:      annualHouse,
					NatalHouseActivated: annualHouse,
					Sign:                signName(annualSign),
					Ruler:               signRulers[signName(annualSign)],
				},
				Monthly: MonthlyProfection{
					ProfectedHouse:              annualMonthlyHouse,
					NatalHouseActivated:         monthlyHouse,
					Sign:                        signName(monthlySign),
					RulerPlanet:                 monthlyRuler,
					RulerLocationByMonthlyHouse: monthlyRulerHouse,
					RulerLocationSign:           monthlyRulerObj.Sign.Name,
				},
				Daily: DailyProfection{
					ProfectedHouse:            step + 1,
					NatalHouseActivated:       dailyNatalHouse,
					Sign:                      signName(dailySign),
					RulerPlanet:               dailyRuler,
					RulerLocationByDailyHouse: dailyRulerHouse,
					RulerLocationSign:         dailyRulerObj.Sign.Name,
				},
			},
		},
	}, nil
}

// dailyStep counts completed 2.5-day intervals since the start of the
// current profected month, which begins on the birth day-of-month at
// midnight.
func dailyStep(t time.Time, birthDay int) int {
	var monthStart time.Time
	if t.Day() >= birthDay {
		monthStart = time.Date(t.Year(), t.Month(), birthDay, 0, 0, 0, 0, t.Location())
	} else {
		year := t.Year()
		if t.Month() == time.January {
			year--
		}
		prev := time.Month(mod12(int(t.Month())-2) + 1)
		monthStart = time.Date(year, prev, birthDay, 0, 0, 0, 0, t.Location())
	}
	elapsed := t.Sub(monthStart).Seconds() / 86400
	return int(math.Floor(elapsed / 2.5))
}
