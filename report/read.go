package report

import (
	"encoding/csv"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nvr-ai/model-compare/benchmark"
	"github.com/pkg/errors"
)

// ReadSummary parses a summary CSV written by WriteSummary.
func ReadSummary(r io.Reader) ([]benchmark.ModelSummary, error) {
	rows, err := readRows(r, SummaryHeader)
	if err != nil {
		return nil, err
	}

	summaries := make([]benchmark.ModelSummary, 0, len(rows))
	for i, row := range rows {
		avg, err := parseSeconds(row[1])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		total, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		unique, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		summaries = append(summaries, benchmark.ModelSummary{
			Model:           row[0],
			AvgElapsed:      avg,
			TotalDetections: total,
			UniqueClasses:   unique,
		})
	}
	return summaries, nil
}

// ReadPerImage parses a per-image CSV written by WritePerImage.
func ReadPerImage(r io.Reader) ([]benchmark.PerImageRecord, error) {
	rows, err := readRows(r, PerImageHeader)
	if err != nil {
		return nil, err
	}

	records := make([]benchmark.PerImageRecord, 0, len(rows))
	for i, row := range rows {
		elapsed, err := parseSeconds(row[2])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		count, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		classes, err := splitClasses(row[4])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		records = append(records, benchmark.PerImageRecord{
			Image:   row[0],
			Model:   row[1],
			Elapsed: elapsed,
			Count:   count,
			Classes: classes,
		})
	}
	return records, nil
}

func readRows(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv")
	}
	if len(rows) == 0 {
		return nil, errors.New("missing header row")
	}
	if !slices.Equal(rows[0], header) {
		return nil, errors.Errorf("unexpected header %q", rows[0])
	}
	return rows[1:], nil
}

func parseSeconds(s string) (time.Duration, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(math.Round(v * float64(time.Second))), nil
}

func splitClasses(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, classSeparator)
	classes := make([]int, len(parts))
	for i, p := range parts {
		c, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		classes[i] = c
	}
	return classes, nil
}
