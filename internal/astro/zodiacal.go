package astro

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ReleasingLevels carries the four releasing levels active during one
// period. The field keys reproduce the period-table export, including the
// lowercase L1 house key. LOBType is nil outside loosing-of-the-bond
// periods.
type ReleasingLevels struct {
	L1NatalHouse int     `json:"L1_Natal_house"`
	L2NatalHouse int     `json:"L2_Natal_House"`
	L3NatalHouse int     `json:"L3_Natal_House"`
	L4NatalHouse int     `json:"L4_Natal_House"`
	L1Sign       string  `json:"L1_Sign"`
	L2Sign       string  `json:"L2_Sign"`
	L3Sign       string  `json:"L3_Sign"`
	L4Sign       string  `json:"L4_Sign"`
	LOBType      *string `json:"LOB_Type"`
}

// ReleasingReport is the releasing payload for one chunk. A nil part means
// the instant fell outside that table's coverage.
type ReleasingReport struct {
	TargetDate    string           `json:"target_date"`
	PartOfSpirit  *ReleasingLevels `json:"part_of_spirit"`
	PartOfFortune *ReleasingLevels `json:"part_of_fortune"`
}

// PeriodTable is a zodiacal releasing timeline loaded from a tab-separated
// period export. Rows carry a start date and a duration in HHMM form; each
// period begins where the previous one ended, and a 2400 duration closes at
// the end of the row's own calendar day.
type PeriodTable struct {
	periods []period
}

type period struct {
	start, end time.Time
	levels     ReleasingLevels
}

// LoadPeriodTable reads a period table from disk.
func LoadPeriodTable(path string) (*PeriodTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("astro: open period table: %w", err)
	}
	defer f.Close()
	t, err := ParsePeriodTable(f)
	if err != nil {
		return nil, fmt.Errorf("astro: parse period table %q: %w", path, err)
	}
	return t, nil
}

// ParsePeriodTable reads a tab-separated period table with a header row.
func ParsePeriodTable(r io.Reader) (*PeriodTable, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Year", "Month", "Day", "Duration"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	num := func(row []string, name string) (int, error) {
		v := field(row, name)
		if v == "" {
			return 0, nil
		}
		return strconv.Atoi(v)
	}

	table := &PeriodTable{}
	var lastEnd time.Time
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		year, err := num(row, "Year")
		if err != nil {
			return nil, fmt.Errorf("line %d: year: %w", line, err)
		}
		month, err := num(row, "Month")
		if err != nil {
			return nil, fmt.Errorf("line %d: month: %w", line, err)
		}
		day, err := num(row, "Day")
		if err != nil {
			return nil, fmt.Errorf("line %d: day: %w", line, err)
		}
		duration, err := num(row, "Duration")
		if err != nil {
			return nil, fmt.Errorf("line %d: duration: %w", line, err)
		}

		start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if !lastEnd.IsZero() {
			start = lastEnd
		}
		var end time.Time
		if duration == 2400 {
			end = time.Date(year, time.Month(month), day, 23, 59, 59, 999999000, time.UTC)
		} else {
			end = start.Add(time.Duration(duration/100)*time.Hour + time.Duration(duration%100)*time.Minute)
		}

		levels := ReleasingLevels{
			L1Sign: field(row, "L1_Sign"),
			L2Sign: field(row, "L2_Sign"),
			L3Sign: field(row, "L3_Sign"),
			L4Sign: field(row, "L4_Sign"),
		}
		if levels.L1NatalHouse, err = num(row, "L1_Natal_house"); err != nil {
			return nil, fmt.Errorf("line %d: L1 house: %w", line, err)
		}
		if levels.L2NatalHouse, err = num(row, "L2_Natal_House"); err != nil {
			return nil, fmt.Errorf("line %d: L2 house: %w", line, err)
		}
		if levels.L3NatalHouse, err = num(row, "L3_Natal_House"); err != nil {
			return nil, fmt.Errorf("line %d: L3 house: %w", line, err)
		}
		// The export writes this header without the second underscore.
		if levels.L4NatalHouse, err = num(row, "L4_NatalHouse"); err != nil {
			return nil, fmt.Errorf("line %d: L4 house: %w", line, err)
		}
		if lob := field(row, "LOB_Type"); lob != "" {
			levels.LOBType = &lob
		}

		table.periods = append(table.periods, period{start: start, end: end, levels: levels})
		lastEnd = end
	}
	return table, nil
}

// Len reports the number of loaded periods.
func (t *PeriodTable) Len() int {
	return len(t.periods)
}

// Active returns the levels of the first period containing at, or nil when
// at falls outside the table. Bounds are inclusive.
func (t *PeriodTable) Active(at time.Time) *ReleasingLevels {
	for _, p := range t.periods {
		if !at.Before(p.start) && !at.After(p.end) {
			levels := p.levels
			return &levels
		}
	}
	return nil
}

// Releasing looks up the part-of-spirit and part-of-fortune periods active
// at t. A part missing from its table is reported as null rather than
// failing the chunk.
func (s *Service) Releasing(_ context.Context, t time.Time) (Block, error) {
	if s.cfg.SpiritPeriods == nil || s.cfg.FortunePeriods == nil {
		return Block{}, ErrNoReleasingTables
	}
	spirit := s.cfg.SpiritPeriods.Active(t)
	fortune := s.cfg.FortunePeriods.Active(t)

	return Block{
		Key:          ReleasingKey,
		SystemPrompt: releasingPrompt(spirit, fortune),
		ResultsKey:   "zrs_json",
		Results: ReleasingReport{
			TargetDate:    formatTarget(t),
			PartOfSpirit:  spirit,
			PartOfFortune: fortune,
		},
	}, nil
}
