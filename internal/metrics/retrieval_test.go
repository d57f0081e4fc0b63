package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRetrievalCollectors_Lint(t *testing.T) {
	for _, c := range retrievalCollectors() {
		problems, err := testutil.CollectAndLint(c)
		if err != nil {
			t.Fatalf("lint: %v", err)
		}
		for _, p := range problems {
			t.Errorf("%s: %s", p.Metric, p.Text)
		}
	}
}

func TestConfidenceTotal_Counts(t *testing.T) {
	before := testutil.ToFloat64(ConfidenceTotal.WithLabelValues("high"))
	ConfidenceTotal.WithLabelValues("high").Inc()
	if got := testutil.ToFloat64(ConfidenceTotal.WithLabelValues("high")); got != before+1 {
		t.Errorf("expected %f, got %f", before+1, got)
	}
}
