// Package series normalizes query result sets returned by a time-series store
// into ordered numeric sample sequences.
package series

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ResultShape is one of the tabular forms an upstream store may return.
// Implementations: Columnar, RowTuples.
type ResultShape interface {
	shapeName() string
}

// Columnar is a list of column names plus a flat, row-major value list:
// row i, column j lives at Values[i*len(Columns)+j].
type Columnar struct {
	Columns []string
	Values  []interface{}
}

func (Columnar) shapeName() string { return ShapeColumnar }

// RowTuples is a list of [timestamp, value, extra...] tuples
type RowTuples struct {
	Rows [][]interface{}
}

func (RowTuples) shapeName() string { return ShapeRows }

// Wire names of the shapes
const (
	ShapeColumnar = "columnar"
	ShapeRows     = "rows"
)

// ShapeName returns the wire name of a shape, or "" for nil
func ShapeName(shape ResultShape) string {
	if shape == nil {
		return ""
	}
	return shape.shapeName()
}

// ResultSet is the JSON wire form of a ResultShape
type ResultSet struct {
	Shape   string          `json:"shape,omitempty"`
	Columns []string        `json:"columns,omitempty"`
	Values  []interface{}   `json:"values,omitempty"`
	Rows    [][]interface{} `json:"rows,omitempty"`
}

// ToShape converts the wire form to a ResultShape. When Shape is empty the
// form is inferred: columns present means columnar, otherwise rows.
func (r ResultSet) ToShape() (ResultShape, error) {
	kind := strings.ToLower(strings.TrimSpace(r.Shape))
	if kind == "" {
		if len(r.Columns) > 0 {
			kind = ShapeColumnar
		} else {
			kind = ShapeRows
		}
	}

	switch kind {
	case ShapeColumnar:
		return Columnar{Columns: r.Columns, Values: r.Values}, nil
	case ShapeRows, "row_tuples", "tuples":
		return RowTuples{Rows: r.Rows}, nil
	default:
		return nil, fmt.Errorf("unknown result shape: %q", r.Shape)
	}
}

// FromShape converts a ResultShape back to its wire form
func FromShape(shape ResultShape) ResultSet {
	switch s := shape.(type) {
	case Columnar:
		return ResultSet{Shape: ShapeColumnar, Columns: s.Columns, Values: s.Values}
	case RowTuples:
		return ResultSet{Shape: ShapeRows, Rows: s.Rows}
	default:
		return ResultSet{}
	}
}

// Decode parses a JSON result set. Numbers are kept as json.Number so large
// epoch timestamps survive without float rounding.
func Decode(data []byte) (ResultShape, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rs ResultSet
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("failed to decode result set: %w", err)
	}
	return rs.ToShape()
}
