package metrics

import (
	"fmt"

	dto "github.com/prometheus/client_model/go"
)

func findSeries(mfs []*dto.MetricFamily, name string, labels map[string]string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, series := range mf.GetMetric() {
			if hasLabels(series, labels) {
				return series, nil
			}
		}
		return nil, fmt.Errorf("%s has no series with labels %v", name, labels)
	}
	return nil, fmt.Errorf("%s not gathered", name)
}

func hasLabels(series *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(series.GetLabel()))
	for _, pair := range series.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	series, err := findSeries(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return series.GetCounter().GetValue(), nil
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	series, err := findSeries(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return series.GetGauge().GetValue(), nil
}

func fetchHistogram(mfs []*dto.MetricFamily, name string, labels map[string]string) (*dto.Histogram, error) {
	series, err := findSeries(mfs, name, labels)
	if err != nil {
		return nil, err
	}
	return series.GetHistogram(), nil
}
