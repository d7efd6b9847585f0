package model

import "testing"

func TestListOptions_Clamp(t *testing.T) {
	tests := []struct {
		name       string
		input      ListOptions
		wantLimit  int
		wantOffset int
	}{
		{"zero limit", ListOptions{}, 20, 0},
		{"negative limit", ListOptions{Limit: -1}, 20, 0},
		{"above max", ListOptions{Limit: 500}, 100, 0},
		{"negative offset", ListOptions{Limit: 5, Offset: -7}, 5, 0},
		{"in range", ListOptions{Limit: 100, Offset: 40}, 100, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Clamp()
			if tt.input.Limit != tt.wantLimit || tt.input.Offset != tt.wantOffset {
				t.Errorf("Clamp() = limit %d offset %d, want %d %d",
					tt.input.Limit, tt.input.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestListOptions_ClampKeepsFilters(t *testing.T) {
	opts := ListOptions{Limit: 1000, Namespace: "eoap", Phase: "Running"}
	opts.Clamp()
	if opts.Namespace != "eoap" || opts.Phase != "Running" {
		t.Errorf("filters changed: namespace %q phase %q", opts.Namespace, opts.Phase)
	}
}

func TestDefaultListOptions(t *testing.T) {
	opts := DefaultListOptions()
	if opts.Limit != 20 || opts.Offset != 0 {
		t.Errorf("DefaultListOptions() = %+v, want limit 20 offset 0", opts)
	}
	if opts.Namespace != "" || opts.Phase != "" {
		t.Errorf("DefaultListOptions() carries filters: %+v", opts)
	}
}
