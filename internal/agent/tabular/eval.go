package tabular

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/redbco/askdata/internal/agent"
	"github.com/redbco/askdata/pkg/models"
)

// series is a single named column extracted from a frame.
type series struct {
	Name   string
	Values []interface{}
}

// grouped is the intermediate value produced by groupby, waiting for a
// column selection and an aggregate method.
type grouped struct {
	frame *Frame
	by    string
	col   string
}

// evaluate interprets a parsed expression against the loaded frame. The
// result is a *Frame, *series, or scalar.
func evaluate(n node, df *Frame) (interface{}, error) {
	switch expr := n.(type) {
	case dfNode:
		return df, nil

	case lenNode:
		v, err := evaluate(expr.Arg, df)
		if err != nil {
			return nil, err
		}
		switch val := v.(type) {
		case *Frame:
			return int64(len(val.Rows)), nil
		case *series:
			return int64(len(val.Values)), nil
		default:
			return nil, fmt.Errorf("len() requires a frame or column")
		}

	case selectColNode:
		v, err := evaluate(expr.Src, df)
		if err != nil {
			return nil, err
		}
		switch val := v.(type) {
		case *Frame:
			values, ok := val.column(expr.Col)
			if !ok {
				return nil, fmt.Errorf("unknown column: %s", expr.Col)
			}
			return &series{Name: expr.Col, Values: values}, nil
		case *grouped:
			if _, ok := val.frame.colIndex(expr.Col); !ok {
				return nil, fmt.Errorf("unknown column: %s", expr.Col)
			}
			return &grouped{frame: val.frame, by: val.by, col: expr.Col}, nil
		default:
			return nil, fmt.Errorf("column selection requires a frame")
		}

	case selectColsNode:
		v, err := evaluate(expr.Src, df)
		if err != nil {
			return nil, err
		}
		frame, ok := v.(*Frame)
		if !ok {
			return nil, fmt.Errorf("column selection requires a frame")
		}
		indices := make([]int, len(expr.Cols))
		for i, col := range expr.Cols {
			idx, found := frame.colIndex(col)
			if !found {
				return nil, fmt.Errorf("unknown column: %s", col)
			}
			indices[i] = idx
		}
		out := &Frame{Columns: expr.Cols}
		for _, row := range frame.Rows {
			projected := make([]interface{}, len(indices))
			for i, idx := range indices {
				projected[i] = row[idx]
			}
			out.Rows = append(out.Rows, projected)
		}
		return out, nil

	case filterNode:
		v, err := evaluate(expr.Src, df)
		if err != nil {
			return nil, err
		}
		frame, ok := v.(*Frame)
		if !ok {
			return nil, fmt.Errorf("filtering requires a frame")
		}
		out := &Frame{Columns: frame.Columns}
		for _, row := range frame.Rows {
			match, err := evalCond(expr.Cond, frame, row)
			if err != nil {
				return nil, err
			}
			if match {
				out.Rows = append(out.Rows, row)
			}
		}
		return out, nil

	case headNode:
		v, err := evaluate(expr.Src, df)
		if err != nil {
			return nil, err
		}
		switch val := v.(type) {
		case *Frame:
			rows := val.Rows
			if expr.N < len(rows) {
				if expr.Tail {
					rows = rows[len(rows)-expr.N:]
				} else {
					rows = rows[:expr.N]
				}
			}
			return &Frame{Columns: val.Columns, Rows: rows}, nil
		case *series:
			values := val.Values
			if expr.N < len(values) {
				if expr.Tail {
					values = values[len(values)-expr.N:]
				} else {
					values = values[:expr.N]
				}
			}
			return &series{Name: val.Name, Values: values}, nil
		default:
			return nil, fmt.Errorf("head/tail requires a frame or column")
		}

	case sortNode:
		v, err := evaluate(expr.Src, df)
		if err != nil {
			return nil, err
		}
		frame, ok := v.(*Frame)
		if !ok {
			return nil, fmt.Errorf("sort_values requires a frame")
		}
		idx, found := frame.colIndex(expr.Col)
		if !found {
			return nil, fmt.Errorf("unknown column: %s", expr.Col)
		}
		out := &Frame{Columns: frame.Columns, Rows: append([][]interface{}(nil), frame.Rows...)}
		sort.SliceStable(out.Rows, func(i, j int) bool {
			a, b := out.Rows[i][idx], out.Rows[j][idx]
			// Missing cells sort last in either direction.
			if a == nil {
				return false
			}
			if b == nil {
				return true
			}
			if expr.Ascending {
				return compareValues(a, b) < 0
			}
			return compareValues(a, b) > 0
		})
		return out, nil

	case groupByNode:
		v, err := evaluate(expr.Src, df)
		if err != nil {
			return nil, err
		}
		frame, ok := v.(*Frame)
		if !ok {
			return nil, fmt.Errorf("groupby requires a frame")
		}
		if _, found := frame.colIndex(expr.By); !found {
			return nil, fmt.Errorf("unknown column: %s", expr.By)
		}
		return &grouped{frame: frame, by: expr.By}, nil

	case methodNode:
		return evalMethod(expr, df)

	default:
		return nil, fmt.Errorf("unsupported expression")
	}
}

func evalMethod(expr methodNode, df *Frame) (interface{}, error) {
	v, err := evaluate(expr.Src, df)
	if err != nil {
		return nil, err
	}

	switch val := v.(type) {
	case *grouped:
		return aggregateGroups(val, expr.Method)

	case *series:
		return seriesMethod(val, expr.Method)

	case *Frame:
		if expr.Method == "count" {
			return int64(len(val.Rows)), nil
		}
		return nil, fmt.Errorf("method %s requires a column", expr.Method)

	default:
		return nil, fmt.Errorf("method %s is not applicable here", expr.Method)
	}
}

func seriesMethod(s *series, method string) (interface{}, error) {
	switch method {
	case "unique":
		seen := make(map[string]bool)
		out := &series{Name: s.Name}
		for _, v := range s.Values {
			if v == nil {
				continue
			}
			key := fmt.Sprintf("%v", v)
			if !seen[key] {
				seen[key] = true
				out.Values = append(out.Values, v)
			}
		}
		return out, nil

	case "value_counts":
		counts := make(map[string]int)
		sample := make(map[string]interface{})
		var order []string
		for _, v := range s.Values {
			if v == nil {
				continue
			}
			key := fmt.Sprintf("%v", v)
			if counts[key] == 0 {
				order = append(order, key)
				sample[key] = v
			}
			counts[key]++
		}
		sort.SliceStable(order, func(i, j int) bool {
			return counts[order[i]] > counts[order[j]]
		})
		out := &Frame{Columns: []string{s.Name, "count"}}
		for _, key := range order {
			out.Rows = append(out.Rows, []interface{}{sample[key], int64(counts[key])})
		}
		return out, nil

	case "nunique":
		seen := make(map[string]bool)
		for _, v := range s.Values {
			if v != nil {
				seen[fmt.Sprintf("%v", v)] = true
			}
		}
		return int64(len(seen)), nil

	case "count":
		n := 0
		for _, v := range s.Values {
			if v != nil {
				n++
			}
		}
		return int64(n), nil

	case "sum", "mean", "min", "max":
		return aggregateValues(s.Values, method)

	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}
}

// aggregateGroups computes one aggregate per group, preserving first-seen
// group order.
func aggregateGroups(g *grouped, method string) (*Frame, error) {
	if g.col == "" && method != "count" {
		return nil, fmt.Errorf("%s after groupby requires a column selection", method)
	}

	byIdx, _ := g.frame.colIndex(g.by)
	colIdx := -1
	if g.col != "" {
		colIdx, _ = g.frame.colIndex(g.col)
	}

	groups := make(map[string][]interface{})
	keys := make(map[string]interface{})
	var order []string
	for _, row := range g.frame.Rows {
		key := fmt.Sprintf("%v", row[byIdx])
		if _, seen := groups[key]; !seen {
			order = append(order, key)
			keys[key] = row[byIdx]
		}
		if colIdx >= 0 {
			groups[key] = append(groups[key], row[colIdx])
		} else {
			groups[key] = append(groups[key], struct{}{})
		}
	}

	valueCol := g.col
	if valueCol == "" || method == "count" {
		valueCol = "count"
	}

	out := &Frame{Columns: []string{g.by, valueCol}}
	for _, key := range order {
		var agg interface{}
		if method == "count" {
			n := 0
			for _, v := range groups[key] {
				if v != nil {
					n++
				}
			}
			agg = int64(n)
		} else {
			var err error
			agg, err = aggregateValues(groups[key], method)
			if err != nil {
				return nil, err
			}
		}
		out.Rows = append(out.Rows, []interface{}{keys[key], agg})
	}
	return out, nil
}

func aggregateValues(values []interface{}, method string) (interface{}, error) {
	var nums []float64
	for _, v := range values {
		if f, ok := toFloat(v); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("%s requires numeric values", method)
	}

	switch method {
	case "sum":
		total := 0.0
		for _, f := range nums {
			total += f
		}
		return total, nil
	case "mean":
		total := 0.0
		for _, f := range nums {
			total += f
		}
		return total / float64(len(nums)), nil
	case "min":
		lowest := nums[0]
		for _, f := range nums[1:] {
			if f < lowest {
				lowest = f
			}
		}
		return lowest, nil
	case "max":
		highest := nums[0]
		for _, f := range nums[1:] {
			if f > highest {
				highest = f
			}
		}
		return highest, nil
	default:
		return nil, fmt.Errorf("unsupported aggregate %q", method)
	}
}

func evalCond(cond condNode, frame *Frame, row []interface{}) (bool, error) {
	switch c := cond.(type) {
	case logicalCond:
		left, err := evalCond(c.Left, frame, row)
		if err != nil {
			return false, err
		}
		right, err := evalCond(c.Right, frame, row)
		if err != nil {
			return false, err
		}
		if c.Op == "&" {
			return left && right, nil
		}
		return left || right, nil

	case compareCond:
		idx, found := frame.colIndex(c.Col)
		if !found {
			return false, fmt.Errorf("unknown column: %s", c.Col)
		}
		return compare(row[idx], c.Op, c.Literal), nil

	default:
		return false, fmt.Errorf("unsupported condition")
	}
}

// compare applies one comparison between a cell and a literal. Missing
// cells only match equality against None.
func compare(cell interface{}, op string, literal interface{}) bool {
	if literal == nil {
		switch op {
		case "==":
			return cell == nil
		case "!=":
			return cell != nil
		}
		return false
	}
	if cell == nil {
		return op == "!="
	}

	if cf, cok := toFloat(cell); cok {
		if lf, lok := toFloat(literal); lok {
			return compareOrdered(cf, lf, op)
		}
	}
	if cs, cok := cell.(string); cok {
		if ls, lok := literal.(string); lok {
			return compareOrdered(strings.Compare(cs, ls), 0, op)
		}
	}
	if cb, cok := cell.(bool); cok {
		if lb, lok := literal.(bool); lok {
			switch op {
			case "==":
				return cb == lb
			case "!=":
				return cb != lb
			}
			return false
		}
	}

	// Type mismatch: only inequality holds.
	return op == "!="
}

func compareOrdered[T int | float64](a, b T, op string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	}
	return false
}

// compareValues orders two cells for sorting. Missing cells sort last.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

// normalizeResult maps the evaluated value into the uniform result shape,
// capped at agent.MaxResultRows. RowCount always matches len(Rows).
func normalizeResult(v interface{}) (*models.ExecutionResult, error) {
	switch val := v.(type) {
	case *Frame:
		rows := val.Rows
		if len(rows) > agent.MaxResultRows {
			rows = rows[:agent.MaxResultRows]
		}
		data := make([]map[string]interface{}, 0, len(rows))
		for _, row := range rows {
			entry := make(map[string]interface{}, len(val.Columns))
			for i, col := range val.Columns {
				entry[col] = normalizeCell(row[i])
			}
			data = append(data, entry)
		}
		return &models.ExecutionResult{Rows: data, Columns: val.Columns, RowCount: len(data)}, nil

	case *series:
		name := val.Name
		if name == "" {
			name = "value"
		}
		values := val.Values
		if len(values) > agent.MaxResultRows {
			values = values[:agent.MaxResultRows]
		}
		data := make([]map[string]interface{}, 0, len(values))
		for _, cell := range values {
			data = append(data, map[string]interface{}{name: normalizeCell(cell)})
		}
		return &models.ExecutionResult{Rows: data, Columns: []string{name}, RowCount: len(data)}, nil

	case *grouped:
		return nil, fmt.Errorf("groupby requires an aggregate method")

	default:
		return &models.ExecutionResult{
			Rows:     []map[string]interface{}{{"result": normalizeCell(v)}},
			Columns:  []string{"result"},
			RowCount: 1,
		}, nil
	}
}

// normalizeCell converts cells into JSON-serializable scalars; NaN and
// infinities become null.
func normalizeCell(v interface{}) interface{} {
	if f, ok := v.(float64); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	}
	return v
}
