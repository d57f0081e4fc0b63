package confidence

import "testing"

func TestClassify_Boundaries(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		top  float64
		want Band
	}{
		{0, None},
		{0.249, None},
		{0.25, Low},
		{0.33, Low},
		{0.399, Low},
		{0.40, High},
		{0.41, High},
		{1, High},
	}
	for _, tt := range tests {
		if got := th.Classify(tt.top); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.top, got, tt.want)
		}
	}
}

func TestClassify_Monotonic(t *testing.T) {
	th := DefaultThresholds()
	rank := map[Band]int{None: 0, Low: 1, High: 2}
	prev := None
	for i := 0; i <= 100; i++ {
		b := th.Classify(float64(i) / 100)
		if rank[b] < rank[prev] {
			t.Fatalf("band decreased at %d: %s after %s", i, b, prev)
		}
		prev = b
	}
}

func TestNewThresholds_Validation(t *testing.T) {
	tests := []struct {
		name      string
		low, high float64
		wantErr   bool
	}{
		{"ok", 0.2, 0.5, false},
		{"equal", 0.3, 0.3, true},
		{"inverted", 0.5, 0.2, true},
		{"negative", -0.1, 0.5, true},
		{"above one", 0.2, 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewThresholds(tt.low, tt.high)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
