/*
Copyright © 2024 the FiltrationStudy authors.
This file is part of FiltrationStudy.

FiltrationStudy is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FiltrationStudy is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FiltrationStudy.  If not, see <http://www.gnu.org/licenses/>.
*/

package filtration

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/tealeg/xlsx"
)

// Outputter is a holder for output parameters.
//
// fileName contains the path where the depth profile will be saved. Files
// ending in ".xlsx" are written as spreadsheets and everything else as
// comma separated values.
//
// outputVariables maps the names of the variables for which data should be
// returned to expressions that define how the requested data should be
// calculated. Expressions can use the layer variables and scalars listed
// by OutputOptions, other output variables, and functions.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	order           []string
	modelVariables  []string
	outputFunctions map[string]govaluate.ExpressionFunction
	expressions     map[string]*govaluate.EvaluableExpression
}

// NewOutputter initializes a new Outputter holder and adds a set of default
// output functions: 'exp(x)', 'log(x)', 'log10(x)', 'pow(x, y)', 'abs(x)',
// 'min(x, y)' and 'max(x, y)'.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp":   unaryFunc("exp", math.Exp),
		"log":   unaryFunc("log", math.Log),
		"log10": unaryFunc("log10", math.Log10),
		"abs":   unaryFunc("abs", math.Abs),
		"pow":   binaryFunc("pow", math.Pow),
		"min":   binaryFunc("min", math.Min),
		"max":   binaryFunc("max", math.Max),
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := &Outputter{
		fileName:        fileName,
		outputVariables: make(map[string]string, len(outputVariables)),
		outputFunctions: defaultOutputFuncs,
		expressions:     make(map[string]*govaluate.EvaluableExpression),
	}
	for k, v := range outputVariables {
		o.outputVariables[k] = v
	}
	if err := checkOutputNames(o.outputVariables); err != nil {
		return nil, err
	}
	if err := o.checkForDerivatives(); err != nil {
		return nil, err
	}
	return o, nil
}

func unaryFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("filtration: got %d arguments for function '%s', but needs 1", len(args), name)
		}
		x, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("filtration: invalid argument %v for function '%s'", args[0], name)
		}
		return f(x), nil
	}
}

func binaryFunc(name string, f func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("filtration: got %d arguments for function '%s', but needs 2", len(args), name)
		}
		x, ok1 := args[0].(float64)
		y, ok2 := args[1].(float64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("filtration: invalid arguments %v for function '%s'", args, name)
		}
		return f(x, y), nil
	}
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]struct{})
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

// checkForDerivatives parses the output expressions and orders them so
// that output variables defined in terms of other output variables are
// calculated after the variables they depend on. The model variables
// required by the expressions are collected in o.modelVariables.
func (o *Outputter) checkForDerivatives() error {
	deps := make(map[string][]string)
	var modelVars []string
	for key, val := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
		if err != nil {
			return fmt.Errorf("filtration: output variable '%s': %v", key, err)
		}
		o.expressions[key] = expression
		for _, v := range removeDuplicates(expression.Vars()) {
			if _, ok := o.outputVariables[v]; ok && v != key {
				deps[key] = append(deps[key], v)
			} else {
				modelVars = append(modelVars, v)
			}
		}
	}
	o.modelVariables = removeDuplicates(modelVars)
	sort.Strings(o.modelVariables)

	keys := make([]string, 0, len(o.outputVariables))
	for k := range o.outputVariables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int)
	var visit func(k string) error
	visit = func(k string) error {
		switch state[k] {
		case visiting:
			return fmt.Errorf("filtration: output variable '%s' is defined in terms of itself", k)
		case visited:
			return nil
		}
		state[k] = visiting
		for _, d := range deps[k] {
			if err := visit(d); err != nil {
				return err
			}
		}
		state[k] = visited
		o.order = append(o.order, k)
		return nil
	}
	for _, k := range keys {
		if err := visit(k); err != nil {
			return err
		}
	}
	return nil
}

// checkOutputNames checks that the output variable names are usable as
// expression variables and column headers.
func checkOutputNames(o map[string]string) error {
	valid := regexp.MustCompile(`^[A-Za-z]\w*$`)
	for key := range o {
		if !valid.MatchString(key) {
			return fmt.Errorf("filtration: output variable name '%s' includes unsupported characters", key)
		}
	}
	return nil
}

// scalarVariables returns the bed-wide variables available to output
// expressions.
func (b *Bed) scalarVariables() map[string]float64 {
	return map[string]float64{
		"C0":       b.Params.InfluentConcentration,
		"V":        b.Params.ApproachVelocity,
		"Lambda0":  b.lambda0,
		"Epsilon0": b.Params.Porosity,
		"Time":     b.Time,
	}
}

var scalarDescriptions = map[string][2]string{
	"C0":       {"Influent particle concentration", "kg/m³"},
	"V":        {"Approach velocity", "m/s"},
	"Lambda0":  {"Clean bed filter coefficient", "1/m"},
	"Epsilon0": {"Clean bed porosity", "fraction"},
	"Time":     {"Elapsed filtration time", "s"},
}

// OutputOptions returns the names, descriptions, and units of the
// variables that are available for use in output expressions.
func (b *Bed) OutputOptions() (names []string, descriptions []string, units []string) {
	t := reflect.TypeOf(Layer{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if desc := f.Tag.Get("desc"); desc != "" {
			names = append(names, f.Name)
			descriptions = append(descriptions, desc)
			units = append(units, f.Tag.Get("units"))
		}
	}
	scalars := make([]string, 0, len(scalarDescriptions))
	for k := range scalarDescriptions {
		scalars = append(scalars, k)
	}
	sort.Strings(scalars)
	for _, k := range scalars {
		names = append(names, k)
		descriptions = append(descriptions, scalarDescriptions[k][0])
		units = append(units, scalarDescriptions[k][1])
	}
	return
}

// getValue returns the value of the named layer variable.
func (l *Layer) getValue(varName string) float64 {
	val := reflect.Indirect(reflect.ValueOf(l))
	return val.FieldByName(varName).Float()
}

func (b *Bed) checkModelVars(g ...string) error {
	names, _, _ := b.OutputOptions()
	available := make(map[string]struct{})
	for _, n := range names {
		available[n] = struct{}{}
	}
	for _, v := range g {
		if _, ok := available[v]; !ok {
			return fmt.Errorf("filtration: undefined variable name '%s'", v)
		}
	}
	return nil
}

// CheckOutputVars ensures the output variables can be calculated.
func (o *Outputter) CheckOutputVars() DomainManipulator {
	return func(b *Bed) error {
		return b.checkModelVars(o.modelVariables...)
	}
}

// Results evaluates the output expressions of o for every layer of b,
// returning one value per layer for each output variable.
func (b *Bed) Results(o *Outputter) (map[string][]float64, error) {
	if err := b.checkModelVars(o.modelVariables...); err != nil {
		return nil, err
	}
	scalars := b.scalarVariables()
	res := make(map[string][]float64, len(o.order))
	for _, k := range o.order {
		res[k] = make([]float64, len(b.layers))
	}
	for i, l := range b.layers {
		params := make(map[string]interface{}, len(o.modelVariables)+len(o.order))
		for _, v := range o.modelVariables {
			if s, ok := scalars[v]; ok {
				params[v] = s
			} else {
				params[v] = l.getValue(v)
			}
		}
		for _, k := range o.order {
			r, err := o.expressions[k].Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("filtration: evaluating output variable '%s': %v", k, err)
			}
			f, ok := r.(float64)
			if !ok {
				return nil, fmt.Errorf("filtration: output variable '%s' evaluated to %v, which is not a number", k, r)
			}
			res[k][i] = f
			params[k] = f
		}
	}
	return res, nil
}

// Output returns a function that writes the depth profile of the output
// variables to o's file.
func (o *Outputter) Output() DomainManipulator {
	return func(b *Bed) error {
		results, err := b.Results(o)
		if err != nil {
			return err
		}
		vars := make([]string, 0, len(results))
		for v := range results {
			vars = append(vars, v)
		}
		sort.Strings(vars)
		header := append([]string{"Depth"}, vars...)
		rows := make([][]interface{}, len(b.layers))
		for i, l := range b.layers {
			row := make([]interface{}, 0, len(vars)+1)
			row = append(row, l.Depth)
			for _, v := range vars {
				row = append(row, results[v][i])
			}
			rows[i] = row
		}
		return WriteTable(o.fileName, "profile", header, rows)
	}
}

// WriteTimeSeries writes the records to fileName as a spreadsheet if the
// name ends in ".xlsx" or as comma separated values otherwise.
func WriteTimeSeries(fileName string, recs []Record) error {
	header := []string{"Time", "EffluentRatio", "HeadLoss", "Deposit"}
	rows := make([][]interface{}, len(recs))
	for i, r := range recs {
		rows[i] = []interface{}{r.Time, r.EffluentRatio, r.HeadLoss, r.Deposit}
	}
	return WriteTable(fileName, "timeseries", header, rows)
}

// WriteTable writes a table with the given column names to fileName. Files
// ending in ".xlsx" are written as a spreadsheet with the table in a sheet
// with the given name, and everything else as comma separated values.
// Cells must hold float64, int, or string values.
func WriteTable(fileName, name string, header []string, rows [][]interface{}) error {
	for i, r := range rows {
		if len(r) != len(header) {
			return fmt.Errorf("filtration: table %s row %d has %d cells but %d columns", name, i, len(r), len(header))
		}
	}
	if strings.ToLower(filepath.Ext(fileName)) == ".xlsx" {
		return writeXLSX(fileName, name, header, rows)
	}
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("filtration: creating output file: %v", err)
	}
	if err := writeCSV(f, header, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatCell(v interface{}) (string, error) {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case string:
		return x, nil
	default:
		return "", fmt.Errorf("filtration: unsupported table cell type %T", v)
	}
}

func writeCSV(w io.Writer, header []string, rows [][]interface{}) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("filtration: writing csv: %v", err)
	}
	rec := make([]string, len(header))
	for _, row := range rows {
		for i, v := range row {
			s, err := formatCell(v)
			if err != nil {
				return err
			}
			rec[i] = s
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("filtration: writing csv: %v", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(fileName, name string, header []string, rows [][]interface{}) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return fmt.Errorf("filtration: writing xlsx: %v", err)
	}
	hrow := sheet.AddRow()
	for _, h := range header {
		hrow.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			c := row.AddCell()
			switch x := v.(type) {
			case float64:
				c.SetFloat(x)
			case int:
				c.SetInt(x)
			case string:
				c.SetString(x)
			default:
				return fmt.Errorf("filtration: unsupported table cell type %T", v)
			}
		}
	}
	if err := f.Save(fileName); err != nil {
		return fmt.Errorf("filtration: writing xlsx: %v", err)
	}
	return nil
}
