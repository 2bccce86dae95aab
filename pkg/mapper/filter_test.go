package mapper

import "testing"

func TestLabelFilterEligible(t *testing.T) {
	tests := []struct {
		name   string
		filter LabelFilter
		labels []string
		want   bool
	}{
		{"zero filter admits all", LabelFilter{}, nil, true},
		{"zero filter admits labeled", LabelFilter{}, []string{"work"}, true},
		{"include match", LabelFilter{Include: []string{"sync"}}, []string{"sync", "work"}, true},
		{"include miss", LabelFilter{Include: []string{"sync"}}, []string{"work"}, false},
		{"include with no labels", LabelFilter{Include: []string{"sync"}}, nil, false},
		{"exclude hit", LabelFilter{Exclude: []string{"private"}}, []string{"private"}, false},
		{"exclude miss", LabelFilter{Exclude: []string{"private"}}, []string{"work"}, true},
		{"exclude beats include", LabelFilter{Include: []string{"sync"}, Exclude: []string{"private"}}, []string{"sync", "private"}, false},
		{"include and clean", LabelFilter{Include: []string{"sync"}, Exclude: []string{"private"}}, []string{"sync"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Eligible(tt.labels); got != tt.want {
				t.Errorf("Eligible(%v) = %v, want %v", tt.labels, got, tt.want)
			}
		})
	}
}

func TestLabelFilterIsZero(t *testing.T) {
	if !(LabelFilter{}).IsZero() {
		t.Error("zero filter should report IsZero")
	}
	if (LabelFilter{Include: []string{"sync"}}).IsZero() {
		t.Error("include filter should not report IsZero")
	}
	if (LabelFilter{Exclude: []string{"private"}}).IsZero() {
		t.Error("exclude filter should not report IsZero")
	}
}
