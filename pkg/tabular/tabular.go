package tabular

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotChartable = errors.New("answer is not chartable")

const BarColor = "purple"

// BarChart describes a single bar trace: the first column of the answer
// feeds the x axis, the second feeds the y axis.
type BarChart struct {
	Title string `json:"title"`
	XKey  string `json:"x_key"`
	YKey  string `json:"y_key"`
	X     []any  `json:"x"`
	Y     []any  `json:"y"`
	Color string `json:"color"`
}

// Decode parses raw as an array of objects. ok is false for anything else,
// including arrays that contain scalars or nested arrays.
func Decode(raw []byte) (rows []Row, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}

	rows = make([]Row, 0, len(elems))
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			return nil, false
		}
		var r Row
		if err := json.Unmarshal(e, &r); err != nil {
			return nil, false
		}
		rows = append(rows, r)
	}
	return rows, true
}

// IsTabular reports whether every row has exactly the keys of the first one.
func IsTabular(rows []Row) bool {
	if len(rows) == 0 {
		return false
	}

	keys := rows[0].keys
	for _, r := range rows {
		if r.Len() != len(keys) {
			return false
		}
		for _, k := range keys {
			if _, ok := r.values[k]; !ok {
				return false
			}
		}
	}
	return true
}

func Chartable(rows []Row) bool {
	return len(rows) > 0 && rows[0].Len() >= 2 && IsTabular(rows)
}

func NewBarChart(rows []Row) (BarChart, error) {
	if !Chartable(rows) {
		return BarChart{}, ErrNotChartable
	}

	xKey, yKey := rows[0].keys[0], rows[0].keys[1]
	bc := BarChart{
		Title: fmt.Sprintf("%s by %s", yKey, xKey),
		XKey:  xKey,
		YKey:  yKey,
		X:     make([]any, 0, len(rows)),
		Y:     make([]any, 0, len(rows)),
		Color: BarColor,
	}
	for _, r := range rows {
		bc.X = append(bc.X, r.values[xKey])
		bc.Y = append(bc.Y, r.values[yKey])
	}
	return bc, nil
}

// Pretty renders rows the way the answer is shown to the user: indented
// JSON with two spaces.
func Pretty(rows []Row) (string, error) {
	if rows == nil {
		rows = []Row{}
	}
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
