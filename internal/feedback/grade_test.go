package feedback

import "testing"

func TestCalculateGradeBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Grade
	}{
		{100, GradeAPlus},
		{95, GradeAPlus},
		{94.99, GradeA},
		{90, GradeA},
		{89.99, GradeAMinus},
		{85, GradeAMinus},
		{80, GradeBPlus},
		{79.5, GradeB},
		{75, GradeB},
		{70, GradeBMinus},
		{65, GradeCPlus},
		{60, GradeC},
		{55, GradeCMinus},
		{54.99, GradeD},
		{50, GradeD},
		{49.99, GradeF},
		{0, GradeF},
		{-5, GradeF},
	}

	for _, tt := range tests {
		got := CalculateGrade(tt.score)
		if got != tt.want {
			t.Errorf("CalculateGrade(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestCalculateGradeIsMonotonic(t *testing.T) {
	prev := CalculateGrade(0)
	for i := 1; i <= 10000; i++ {
		score := float64(i) / 100
		got := CalculateGrade(score)
		if got.Rank() < prev.Rank() {
			t.Fatalf("grade dropped from %q to %q at score %v", prev, got, score)
		}
		prev = got
	}
}

func TestGradeRank(t *testing.T) {
	if GradeAPlus.Rank() != 10 {
		t.Errorf("A+ rank = %d, want 10", GradeAPlus.Rank())
	}
	if GradeF.Rank() != 0 {
		t.Errorf("F rank = %d, want 0", GradeF.Rank())
	}
	if GradeNotAvailable.Rank() != -1 {
		t.Errorf("N/A rank = %d, want -1", GradeNotAvailable.Rank())
	}
	if !GradeNotAvailable.Valid() || !GradeCMinus.Valid() {
		t.Error("known grades should be valid")
	}
	if Grade("E").Valid() {
		t.Error("E should not be a valid grade")
	}
}
