package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"github.com/nowhere-man/VMA/common"
	"github.com/nowhere-man/VMA/model"
	"github.com/nowhere-man/VMA/utils"
)

const (
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatTable = "table"
)

var AllFormats = []string{FormatJSON, FormatCSV, FormatTable}

func Write(w io.Writer, report *model.Report, format string) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatCSV:
		return WriteCSV(w, report.Records)
	case FormatTable:
		return WriteTable(w, report)
	}
	return fmt.Errorf("unknown format %q: %w", format, common.ErrorInvalidValue)
}

func WriteJSON(w io.Writer, report *model.Report) error {
	return json.NewEncoder(w).Encode(report)
}

// WriteCSV writes one row per video, undefined values as "-".
func WriteCSV(w io.Writer, records []*model.BDRecord) error {
	return gocsv.Marshal(records, w)
}

// WriteTable renders records the way the dashboard does: rates with two
// decimals, metric deltas with four.
func WriteTable(w io.Writer, report *model.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{"source"}
	for _, axis := range summaryAxes {
		for _, metric := range model.AllMetrics {
			header = append(header, model.FieldName(axis, metric))
		}
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	row := func(name string, value func(model.Axis, model.Metric) model.BDResult) {
		cells := []string{name}
		for _, axis := range summaryAxes {
			for _, metric := range model.AllMetrics {
				cells = append(cells, formatCell(axis, value(axis, metric)))
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}

	for _, record := range report.Records {
		row(record.Source, record.Get)
	}
	row("average", func(axis model.Axis, metric model.Metric) model.BDResult {
		return report.Summary[model.FieldName(axis, metric)].Mean
	})

	return tw.Flush()
}

func formatCell(axis model.Axis, v model.BDResult) string {
	if !v.Valid {
		return "-"
	}
	if axis == model.QualityAxis {
		return strconv.FormatFloat(utils.FormatFloat(v.Value, 2), 'f', 2, 64) + "%"
	}
	return strconv.FormatFloat(utils.FormatFloat(v.Value, 4), 'f', 4, 64)
}

// LoadSamples reads a sample table from a .csv or .json file.
func LoadSamples(path string) ([]model.RatePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadSamplesCSV(f)
	case ".json":
		return ReadSamplesJSON(f)
	}
	return nil, fmt.Errorf("unsupported sample file %s: %w", path, common.ErrorInvalidValue)
}

func ReadSamplesCSV(r io.Reader) ([]model.RatePoint, error) {
	points := []model.RatePoint{}
	if err := gocsv.Unmarshal(r, &points); err != nil {
		return nil, fmt.Errorf("read samples csv: %w", err)
	}
	return points, nil
}

func ReadSamplesJSON(r io.Reader) ([]model.RatePoint, error) {
	points := []model.RatePoint{}
	if err := json.NewDecoder(r).Decode(&points); err != nil {
		return nil, fmt.Errorf("read samples json: %w", err)
	}
	return points, nil
}
