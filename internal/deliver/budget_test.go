package deliver

import (
	"testing"
	"time"

	"relay/internal/testsupport"
)

func TestBudgetMultiplier(t *testing.T) {
	b := Budget{Base: Timeouts{Connect: 30 * time.Second, Read: 60 * time.Second, Write: 60 * time.Second}, StepMB: 50, MaxMultiplier: 10}
	tests := []struct {
		name string
		size int64
		want float64
	}{
		{"empty", 0, 1},
		{"small", 5 * bytesPerMB, 1},
		{"one step", 50 * bytesPerMB, 1},
		{"three steps", 150 * bytesPerMB, 3},
		{"fractional", 75 * bytesPerMB, 1.5},
		{"capped", 5000 * bytesPerMB, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Multiplier(tt.size); got != tt.want {
				t.Fatalf("Multiplier(%d) = %v, want %v", tt.size, got, tt.want)
			}
		})
	}

	got := b.For(150 * bytesPerMB)
	want := Timeouts{Connect: 90 * time.Second, Read: 180 * time.Second, Write: 180 * time.Second}
	if got != want {
		t.Fatalf("For = %+v, want %+v", got, want)
	}
	if got.Total() != 450*time.Second {
		t.Fatalf("Total = %v", got.Total())
	}
}

func TestBudgetWithoutStep(t *testing.T) {
	b := Budget{Base: Timeouts{Read: time.Second}}
	if b.Multiplier(1<<40) != 1 {
		t.Fatal("zero step should not scale")
	}
}

func TestBudgetFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	b := BudgetFromConfig(cfg)
	if b.Base.Connect != 30*time.Second || b.Base.Read != 60*time.Second || b.StepMB != 50 || b.MaxMultiplier != 10 {
		t.Fatalf("unexpected budget %+v", b)
	}
}

func TestTimeoutsHTTPClient(t *testing.T) {
	hc := Timeouts{Connect: time.Second, Read: 2 * time.Second, Write: 3 * time.Second}.HTTPClient()
	if hc.Timeout != 6*time.Second {
		t.Fatalf("client timeout = %v", hc.Timeout)
	}
}
