package model

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nowhere-man/VMA/common"
)

type Side string

const (
	AnchorSide Side = "anchor"
	TestSide   Side = "test"
)

// ParseSide accepts the side names used by sample tables.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anchor", "a", "base":
		return AnchorSide, nil
	case "test", "b", "exp":
		return TestSide, nil
	}
	return "", fmt.Errorf("unknown side %q: %w", s, common.ErrorInvalidValue)
}

type Metric string

const (
	MetricPSNR    Metric = "psnr"
	MetricSSIM    Metric = "ssim"
	MetricVMAF    Metric = "vmaf"
	MetricVMAFNeg Metric = "vmaf_neg"
)

var AllMetrics = []Metric{MetricPSNR, MetricSSIM, MetricVMAF, MetricVMAFNeg}

// SamplePair is one encoded rate-control point: a bitrate and the quality it
// reached. NaN marks a missing component.
type SamplePair struct {
	BitrateKbps float64
	Metric      float64
}

func (p SamplePair) Missing() bool {
	return math.IsNaN(p.BitrateKbps) || math.IsNaN(p.Metric) || p.BitrateKbps <= 0
}

// OptionalFloat is a numeric cell that may be absent.
// It renders as null in json and "-" in csv.
type OptionalFloat struct {
	Value float64
	Valid bool
}

func Some(v float64) OptionalFloat {
	return OptionalFloat{Value: v, Valid: true}
}

func None() OptionalFloat {
	return OptionalFloat{}
}

// Float returns the value, or NaN when absent.
func (f OptionalFloat) Float() float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Value
}

func (f OptionalFloat) String() string {
	if !f.Valid {
		return "-"
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

func (f OptionalFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid || math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f.Value, 'g', -1, 64)), nil
}

func (f *OptionalFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = None()
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		str, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("parse %s: %w", data, common.ErrorInvalidValue)
		}
		return f.UnmarshalCSV(str)
	}
	v, err := parseFinite(string(data))
	if err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

func (f OptionalFloat) MarshalCSV() (string, error) {
	return f.String(), nil
}

func (f *OptionalFloat) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "null", "none", "nan":
		*f = None()
		return nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parse %q: %w", s, common.ErrorInvalidValue)
	}
	return v, nil
}

// RatePoint is one row of an extracted sample table: the bitrate and the
// objective metrics of one video encoded at one rate-control point.
type RatePoint struct {
	Video       string        `csv:"video" json:"video"`
	Side        Side          `csv:"side" json:"side"`
	Label       string        `csv:"label" json:"label"`
	BitrateKbps OptionalFloat `csv:"bitrate_kbps" json:"bitrate_kbps"`
	PSNR        OptionalFloat `csv:"psnr" json:"psnr"`
	SSIM        OptionalFloat `csv:"ssim" json:"ssim"`
	VMAF        OptionalFloat `csv:"vmaf" json:"vmaf"`
	VMAFNeg     OptionalFloat `csv:"vmaf_neg" json:"vmaf_neg"`
}

func (p *RatePoint) MetricValue(metric Metric) OptionalFloat {
	switch metric {
	case MetricPSNR:
		return p.PSNR
	case MetricSSIM:
		return p.SSIM
	case MetricVMAF:
		return p.VMAF
	case MetricVMAFNeg:
		return p.VMAFNeg
	}
	return None()
}

func (p *RatePoint) DebugString() string {
	return fmt.Sprintf("video: %v, side: %v, label: %v, bitrate: %v", p.Video, p.Side, p.Label, p.BitrateKbps)
}
