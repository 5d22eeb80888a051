package output

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// ErrNotTabular is returned for values that have no table rendering.
var ErrNotTabular = errors.New("value cannot be rendered as a table")

var timeType = reflect.TypeOf(time.Time{})

// TableFormatter formats data as aligned columns.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
	// Precision is the number of decimals for floats. Zero prints the
	// shortest representation that round-trips.
	Precision int
}

// Format formats data as a table.
// Supports: Table, []T (slice of structs/maps/scalars), map[K]V, struct.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}

	if t, ok := data.(*Table); ok {
		return t.RenderWithOptions(w, f.NoHeaders)
	}
	if t, ok := data.(Table); ok {
		return t.RenderWithOptions(w, f.NoHeaders)
	}

	table, err := f.toTable(data)
	if err != nil {
		return err
	}
	return table.RenderWithOptions(w, f.NoHeaders)
}

func (f *TableFormatter) toTable(data any) (*Table, error) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return &Table{}, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return f.sliceToTable(v)
	case reflect.Map:
		return f.mapToTable(v)
	case reflect.Struct:
		return f.structToTable(v)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotTabular, v.Kind())
	}
}

// column is one rendered struct field. Nested structs are flattened so that
// a field Head of type HeadPose yields HEAD_X, HEAD_Y and HEAD_ANGLE;
// embedded structs contribute their fields unprefixed.
type column struct {
	header string
	index  []int
}

func (f *TableFormatter) columns(t reflect.Type, prefix string, parent []int) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("table")
		if tag == "-" {
			continue
		}
		if strings.Contains(tag, "wide") && !f.Wide {
			continue
		}

		index := append(append([]int(nil), parent...), i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			cols = append(cols, f.columns(field.Type, prefix, index)...)
			continue
		}
		name := prefix + toSnakeCase(fieldName(field))
		if field.Type.Kind() == reflect.Struct && field.Type != timeType {
			cols = append(cols, f.columns(field.Type, name+"_", index)...)
			continue
		}
		cols = append(cols, column{header: strings.ToUpper(name), index: index})
	}
	return cols
}

func (f *TableFormatter) sliceToTable(v reflect.Value) (*Table, error) {
	if v.Len() == 0 {
		return &Table{}, nil
	}

	first := indirect(v.Index(0))
	table := &Table{}
	var cols []column

	switch first.Kind() {
	case reflect.Struct:
		cols = f.columns(first.Type(), "", nil)
		for _, c := range cols {
			table.Headers = append(table.Headers, c.header)
		}
	case reflect.Map:
		table.Headers = []string{"KEY", "VALUE"}
	default:
		table.Headers = []string{"VALUE"}
	}

	for i := 0; i < v.Len(); i++ {
		elem := indirect(v.Index(i))
		switch elem.Kind() {
		case reflect.Struct:
			row := make([]string, 0, len(cols))
			for _, c := range cols {
				row = append(row, f.formatValue(elem.FieldByIndex(c.index)))
			}
			table.Rows = append(table.Rows, row)
		case reflect.Map:
			table.Rows = append(table.Rows, f.mapRows(elem)...)
		default:
			table.Rows = append(table.Rows, []string{f.formatValue(elem)})
		}
	}

	return table, nil
}

func (f *TableFormatter) mapToTable(v reflect.Value) (*Table, error) {
	return &Table{
		Headers: []string{"KEY", "VALUE"},
		Rows:    f.mapRows(v),
	}, nil
}

// mapRows renders a map as key/value rows sorted by key.
func (f *TableFormatter) mapRows(v reflect.Value) [][]string {
	rows := make([][]string, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		rows = append(rows, []string{f.formatValue(iter.Key()), f.formatValue(iter.Value())})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows
}

// structToTable renders a single struct as FIELD/VALUE rows.
func (f *TableFormatter) structToTable(v reflect.Value) (*Table, error) {
	table := &Table{Headers: []string{"FIELD", "VALUE"}}
	for _, c := range f.columns(v.Type(), "", nil) {
		table.AddRow(strings.ToLower(c.header), f.formatValue(v.FieldByIndex(c.index)))
	}
	return table, nil
}

func fieldName(field reflect.StructField) string {
	if jsonTag := field.Tag.Get("json"); jsonTag != "" {
		name, _, _ := strings.Cut(jsonTag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

// formatValue formats a reflect.Value for display.
func (f *TableFormatter) formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	v = indirect(v)
	if (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && v.IsNil() {
		return ""
	}

	switch x := v.Interface().(type) {
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		return x.Format("2006-01-02 15:04:05")
	case time.Duration:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}

	switch v.Kind() {
	case reflect.String:
		if v.Len() == 0 {
			return "-"
		}
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', f.precision(), 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', f.precision(), 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func (f *TableFormatter) precision() int {
	if f.Precision <= 0 {
		return -1
	}
	return f.Precision
}

// toSnakeCase converts CamelCase to Snake_Case; headers are upper-cased by
// the caller.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteByte('_')
		}
		result.WriteRune(r)
	}
	return result.String()
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table with options.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !noHeaders && len(t.Headers) > 0 {
		if _, err := io.WriteString(tw, strings.Join(t.Headers, "\t")+"\n"); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if _, err := io.WriteString(tw, strings.Join(row, "\t")+"\n"); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// SetHeaders sets the table headers.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}
