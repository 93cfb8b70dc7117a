// Package table orders equipment records for display.
package table

import (
	"errors"
	"sort"

	"chemviz-dashboard/internal/entity"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Key string

const (
	KeyEquipmentName Key = "equipment_name"
	KeyEquipmentType Key = "equipment_type"
	KeyFlowrate      Key = "flowrate"
	KeyPressure      Key = "pressure"
	KeyTemperature   Key = "temperature"
)

type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

var ErrUnknownSortKey = errors.New("unknown sort key")

// Columns lists the sortable columns in display order.
var Columns = []Key{KeyEquipmentName, KeyEquipmentType, KeyFlowrate, KeyPressure, KeyTemperature}

func ParseKey(s string) (Key, error) {
	for _, k := range Columns {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrUnknownSortKey
}

func (k Key) textual() bool {
	return k == KeyEquipmentName || k == KeyEquipmentType
}

func textValue(r *entity.EquipmentRecord, k Key) string {
	if k == KeyEquipmentType {
		return r.EquipmentType
	}
	return r.EquipmentName
}

func numericValue(r *entity.EquipmentRecord, k Key) float64 {
	switch k {
	case KeyPressure:
		return r.Pressure
	case KeyTemperature:
		return r.Temperature
	default:
		return r.Flowrate
	}
}

// Sort returns a stably ordered copy of records. Text columns use English
// collation: letters compare case-insensitively first and lowercase sorts
// before uppercase on a tie, so "B", "a", "A" orders as "a", "A", "B".
// Numeric columns compare by value. Descending negates the comparison, so
// equal keys keep their input order in both directions.
func Sort(records []entity.EquipmentRecord, key Key, dir Direction) ([]entity.EquipmentRecord, error) {
	if _, err := ParseKey(string(key)); err != nil {
		return nil, err
	}
	if dir != Descending {
		dir = Ascending
	}

	out := make([]entity.EquipmentRecord, len(records))
	copy(out, records)

	var cmp func(a, b *entity.EquipmentRecord) int
	if key.textual() {
		// a Collator holds scratch buffers and is not safe for concurrent use
		col := collate.New(language.English)
		cmp = func(a, b *entity.EquipmentRecord) int {
			return col.CompareString(textValue(a, key), textValue(b, key))
		}
	} else {
		cmp = func(a, b *entity.EquipmentRecord) int {
			va, vb := numericValue(a, key), numericValue(b, key)
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			}
			return 0
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return int(dir)*cmp(&out[i], &out[j]) < 0
	})
	return out, nil
}

// SortState is the table's current column and direction.
type SortState struct {
	Key       Key       `json:"sort_key"`
	Direction Direction `json:"sort_direction"`
}

func DefaultSortState() SortState {
	return SortState{Key: KeyEquipmentName, Direction: Ascending}
}

// Toggle flips the direction when key is already the sort column and
// otherwise switches to key ascending.
func (s SortState) Toggle(key Key) SortState {
	if s.Key == key {
		return SortState{Key: key, Direction: -s.Direction}
	}
	return SortState{Key: key, Direction: Ascending}
}
