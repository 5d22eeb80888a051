package output

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format Format
		wide   bool
		want   string
	}{
		{FormatJSON, false, "*output.JSONFormatter"},
		{FormatYAML, false, "*output.YAMLFormatter"},
		{FormatTable, false, "*output.TableFormatter"},
		{FormatTable, true, "*output.TableFormatter"},
		{"unknown", false, "*output.TableFormatter"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s wide=%v", tt.format, tt.wide), func(t *testing.T) {
			f := NewFormatter(tt.format, tt.wide)
			if got := fmt.Sprintf("%T", f); got != tt.want {
				t.Fatalf("NewFormatter(%q) = %s, want %s", tt.format, got, tt.want)
			}
			if tf, ok := f.(*TableFormatter); ok && tf.Wide != tt.wide {
				t.Errorf("Wide = %v, want %v", tf.Wide, tt.wide)
			}
		})
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	type summary struct {
		Path     string  `json:"path"`
		Sections int     `json:"sections"`
		MeanDT   float32 `json:"mean_dt"`
	}

	tests := []struct {
		name string
		data any
		want []string
	}{
		{"struct", summary{Path: "run.simlog", Sections: 4, MeanDT: 0.5}, []string{`"path": "run.simlog"`, `"sections": 4`, `"mean_dt": 0.5`}},
		{"slice", []string{"a.simlog", "b.simlog"}, []string{`"a.simlog"`, `"b.simlog"`}},
		{"map", map[string]int{"clients": 3}, []string{`"clients": 3`}},
		{"nil", nil, []string{"null"}},
	}

	f := &JSONFormatter{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := f.Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("Format() = %q, missing %q", buf.String(), want)
				}
			}
		})
	}
}

func TestJSONFormatter_Compact(t *testing.T) {
	f := &JSONFormatter{Compact: true}

	var buf bytes.Buffer
	if err := f.Format(&buf, map[string]int{"sections": 12}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got := buf.String(); got != "{\"sections\":12}\n" {
		t.Errorf("Format() = %q", got)
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	f := &YAMLFormatter{}

	t.Run("uses yaml tags", func(t *testing.T) {
		data := struct {
			Path     string  `yaml:"path"`
			Sections int     `yaml:"sections"`
			Duration float32 `yaml:"duration"`
		}{
			Path:     "run.simlog",
			Sections: 12,
			Duration: 1.5,
		}

		var buf bytes.Buffer
		if err := f.Format(&buf, data); err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		want := "path: run.simlog\nsections: 12\nduration: 1.5\n"
		if buf.String() != want {
			t.Errorf("Format() = %q, want %q", buf.String(), want)
		}
	})

	t.Run("indents nested values by two", func(t *testing.T) {
		data := map[string]any{"head": map[string]float64{"x": 1}}

		var buf bytes.Buffer
		if err := f.Format(&buf, data); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		if !strings.Contains(buf.String(), "head:\n  x: 1\n") {
			t.Errorf("Format() = %q", buf.String())
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
