package tabular

import "testing"

func TestFilter_Rejects(t *testing.T) {
	header := []string{"name", "team", "score"}

	tests := []struct {
		name     string
		required []string
		row      []string
		want     bool
	}{
		{name: "no required names", required: nil, row: []string{"", "", ""}, want: false},
		{name: "all present", required: []string{"name", "score"}, row: []string{"a", "", "1"}, want: false},
		{name: "empty required cell", required: []string{"name"}, row: []string{"", "A", "10"}, want: true},
		{name: "zero is not empty", required: []string{"score"}, row: []string{"a", "A", "0"}, want: false},
		{name: "whitespace is not empty", required: []string{"name"}, row: []string{" ", "A", "1"}, want: false},
		{name: "absent required column", required: []string{"city"}, row: []string{"a", "A", "1"}, want: true},
		{name: "row too short for required", required: []string{"score"}, row: []string{"a"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(Resolve(header, tt.required), tt.required)
			if got := f.Rejects(tt.row); got != tt.want {
				t.Errorf("Rejects(%q) = %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}

func TestFilter_Unsatisfiable(t *testing.T) {
	header := []string{"a", "b"}

	f := NewFilter(Resolve(header, []string{"a", "zz"}), []string{"a", "zz"})
	if !f.Unsatisfiable() {
		t.Error("Unsatisfiable() = false with absent required column")
	}

	f = NewFilter(Resolve(header, []string{"b"}), []string{"b"})
	if f.Unsatisfiable() {
		t.Error("Unsatisfiable() = true with resolvable columns")
	}
}
