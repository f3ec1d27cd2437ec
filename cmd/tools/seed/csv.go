package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dicdwatch/dicdwatch/internal/source"
	"github.com/dicdwatch/dicdwatch/internal/utils"
)

// readMeasurements parses rows of
//
//	timestamp,value[,top,center,bottom,left,right]
//
// A header row is skipped when its value column is not numeric. Empty position
// cells are positions without a reading. Date-only timestamps are read in loc.
func readMeasurements(r io.Reader, loc *time.Location) ([]source.Measurement, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var out []source.Measurement
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected at least timestamp,value", line)
		}
		if len(record) > 2+len(source.PositionNames) {
			return nil, fmt.Errorf("line %d: too many columns (%d)", line, len(record))
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: invalid value %q", line, record[1])
		}

		ts, err := parseTimestamp(strings.TrimSpace(record[0]), loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		m := source.Measurement{Timestamp: ts, Value: value}
		if len(record) > 2 {
			m.Positions = make([]*float64, len(source.PositionNames))
			for i, cell := range record[2:] {
				cell = strings.TrimSpace(cell)
				if cell == "" {
					continue
				}
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid %s reading %q", line, source.PositionNames[i], cell)
				}
				m.Positions[i] = &v
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(utils.DateLayout, value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q (expected RFC3339 or %s)", value, utils.DateLayout)
}

// optionalFloat parses a flag value that may be left empty
func optionalFloat(name, value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid -%s: %q", name, value)
	}
	return &v, nil
}
