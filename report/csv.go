// Package report - Serialization of benchmark results to CSV files and the console.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nvr-ai/model-compare/benchmark"
	"github.com/pkg/errors"
)

// SummaryHeader is the header row of the summary file.
var SummaryHeader = []string{"Model", "Avg Inference Time (s)", "Total Detections", "Unique Classes Detected"}

// PerImageHeader is the header row of the per-image file.
var PerImageHeader = []string{"Image", "Model", "Inference Time (s)", "Detection Count", "Detected Classes"}

// classSeparator joins class indices in the Detected Classes column.
const classSeparator = ", "

// Seconds renders a duration as seconds rounded to 4 decimal places.
func Seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 4, 64)
}

// JoinClasses renders class indices as "0, 1"; empty when there are none.
func JoinClasses(classes []int) string {
	parts := make([]string, len(classes))
	for i, c := range classes {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, classSeparator)
}

func summaryRow(s benchmark.ModelSummary) []string {
	return []string{
		s.Model,
		Seconds(s.AvgElapsed),
		strconv.Itoa(s.TotalDetections),
		strconv.Itoa(s.UniqueClasses),
	}
}

// WriteSummary writes one CSV row per summary, in the given order.
func WriteSummary(w io.Writer, summaries []benchmark.ModelSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return errors.Wrap(err, "failed to write summary header")
	}
	for _, s := range summaries {
		if err := cw.Write(summaryRow(s)); err != nil {
			return errors.Wrapf(err, "failed to write summary for %s", s.Model)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush summary")
}

// WritePerImage writes one CSV row per record, in the given order.
func WritePerImage(w io.Writer, records []benchmark.PerImageRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PerImageHeader); err != nil {
		return errors.Wrap(err, "failed to write per-image header")
	}
	for _, r := range records {
		row := []string{
			r.Image,
			r.Model,
			Seconds(r.Elapsed),
			strconv.Itoa(r.Count),
			JoinClasses(r.Classes),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write record for %s/%s", r.Model, r.Image)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush per-image records")
}

// WriteFiles writes the summary and per-image files, creating parent directories.
//
// Arguments:
//   - summaryPath: Destination of the summary CSV.
//   - perImagePath: Destination of the per-image CSV.
//   - result: The completed benchmark result.
//
// Returns:
//   - error: An error if a directory or file cannot be written.
func WriteFiles(summaryPath, perImagePath string, result *benchmark.Result) error {
	if err := writeFile(summaryPath, func(w io.Writer) error {
		return WriteSummary(w, result.Summaries)
	}); err != nil {
		return err
	}
	return writeFile(perImagePath, func(w io.Writer) error {
		return WritePerImage(w, result.Records)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "failed to close %s", path)
}
