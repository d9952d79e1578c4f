package holidays

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileSource reads plant-specific closures from a YAML file:
//
//	holidays:
//	  - date: 2026-10-02
//	    name: Sukkot
//	  - date: 2026-12-31
//	    name: Inventory
type FileSource struct {
	Path string
	Loc  *time.Location
}

type holidayFile struct {
	Holidays []struct {
		Date string `yaml:"date"`
		Name string `yaml:"name"`
	} `yaml:"holidays"`
}

func (s FileSource) Name() string {
	return "file"
}

func (s FileSource) Holidays(_ context.Context, year int) ([]time.Time, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read holiday file: %w", err)
	}
	return parseHolidayFile(data, year, s.Loc)
}

func parseHolidayFile(data []byte, year int, loc *time.Location) ([]time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	var f holidayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse holiday file: %w", err)
	}

	days := []time.Time{}
	for _, h := range f.Holidays {
		d, err := time.ParseInLocation(time.DateOnly, h.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("parse holiday %q: %w", h.Name, err)
		}
		if d.Year() == year {
			days = append(days, d)
		}
	}
	return days, nil
}
