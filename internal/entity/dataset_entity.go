// FILE: internal/entity/dataset_entity.go
package entity

import (
	"fmt"
	"math"
	"time"
)

type DatasetID int64

// DatasetSummary is what the backend computes for one uploaded CSV.
type DatasetSummary struct {
	Id               DatasetID      `json:"id"`
	Name             string         `json:"name"`
	UploadedAt       time.Time      `json:"uploaded_at"`
	TotalRecords     int            `json:"total_records"`
	AvgFlowrate      float64        `json:"avg_flowrate"`
	AvgPressure      float64        `json:"avg_pressure"`
	AvgTemperature   float64        `json:"avg_temperature"`
	TypeDistribution map[string]int `json:"type_distribution"`
}

// HistoryEntry is a summary without records, as listed by /history/.
type HistoryEntry = DatasetSummary

type EquipmentRecord struct {
	Id            int64   `json:"id"`
	EquipmentName string  `json:"equipment_name"`
	EquipmentType string  `json:"equipment_type"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

type Dataset struct {
	DatasetSummary
	Records []EquipmentRecord `json:"records"`
}

// averages are rounded to two decimals by the backend
const summaryTolerance = 0.01

// Validate checks the summary against the records it was computed from.
func (d *Dataset) Validate() error {
	if d.TotalRecords != len(d.Records) {
		return fmt.Errorf("total_records is %d but %d records present", d.TotalRecords, len(d.Records))
	}

	counts := make(map[string]int)
	var flow, press, temp float64
	for _, r := range d.Records {
		counts[r.EquipmentType]++
		flow += r.Flowrate
		press += r.Pressure
		temp += r.Temperature
	}

	if len(counts) != len(d.TypeDistribution) {
		return fmt.Errorf("type_distribution has %d types but records have %d", len(d.TypeDistribution), len(counts))
	}
	for t, n := range counts {
		if d.TypeDistribution[t] != n {
			return fmt.Errorf("type_distribution[%q] is %d, records have %d", t, d.TypeDistribution[t], n)
		}
	}

	if len(d.Records) == 0 {
		return nil
	}
	n := float64(len(d.Records))
	checks := []struct {
		field string
		got   float64
		want  float64
	}{
		{"avg_flowrate", d.AvgFlowrate, flow / n},
		{"avg_pressure", d.AvgPressure, press / n},
		{"avg_temperature", d.AvgTemperature, temp / n},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > summaryTolerance {
			return fmt.Errorf("%s is %.4f, records average %.4f", c.field, c.got, c.want)
		}
	}
	return nil
}
