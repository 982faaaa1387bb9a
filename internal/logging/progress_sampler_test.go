package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	for _, size := range []float64{0, -3} {
		if s := NewProgressSampler(size); s.bucketSize != 5 {
			t.Fatalf("bucket size for %v = %v, want 5", size, s.bucketSize)
		}
	}
	if s := NewProgressSampler(10); s.bucketSize != 10 {
		t.Fatalf("custom bucket size not kept: %v", s.bucketSize)
	}
}

func TestProgressSamplerSequence(t *testing.T) {
	type step struct {
		percent float64
		stage   string
		want    bool
	}
	tests := []struct {
		name   string
		bucket float64
		steps  []step
	}{
		{
			name:   "bucket crossings",
			bucket: 5,
			steps: []step{
				{0, "download", true},
				{3, "download", false},
				{5, "download", true},
				{7.5, "download", false},
				{10, "download", true},
			},
		},
		{
			name:   "stage change resets bucket",
			bucket: 5,
			steps: []step{
				{50, "download", true},
				{0, "refetch", true},
				{10, "refetch", true},
				{12, "refetch", false},
			},
		},
		{
			name:   "unknown percent only logs stage change",
			bucket: 5,
			steps: []step{
				{-1, "download", true},
				{-1, "download", false},
			},
		},
		{
			name:   "caps at 100",
			bucket: 5,
			steps: []step{
				{95, "download", true},
				{100, "download", true},
				{104, "download", false},
			},
		},
		{
			name:   "stage is trimmed",
			bucket: 25,
			steps: []step{
				{0, " download ", true},
				{20, "download", false},
				{25, "download", true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucket)
			for i, st := range tt.steps {
				if got := s.ShouldLog(st.percent, st.stage); got != st.want {
					t.Fatalf("step %d (%v%% %q) = %v, want %v", i, st.percent, st.stage, got, st.want)
				}
			}
		})
	}
}

func TestProgressSamplerResetAndNil(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "download")
	s.Reset()
	if s.lastStage != "" || s.lastBucket != -1 {
		t.Fatalf("reset left state: %q %d", s.lastStage, s.lastBucket)
	}
	if !s.ShouldLog(50, "download") {
		t.Fatal("expected emission after reset")
	}

	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog(10, "x") {
		t.Fatal("nil sampler should always log")
	}
	nilSampler.Reset()
}
