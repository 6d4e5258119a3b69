package feedback

// Grade is a letter grade label.
type Grade string

const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C-"
	GradeD      Grade = "D"
	GradeF      Grade = "F"

	// GradeNotAvailable is given when the assessment failed.
	GradeNotAvailable Grade = "N/A"
)

// gradeBounds lists inclusive lower bounds from best to worst.
var gradeBounds = []struct {
	min   float64
	grade Grade
}{
	{95, GradeAPlus},
	{90, GradeA},
	{85, GradeAMinus},
	{80, GradeBPlus},
	{75, GradeB},
	{70, GradeBMinus},
	{65, GradeCPlus},
	{60, GradeC},
	{55, GradeCMinus},
	{50, GradeD},
}

// CalculateGrade maps a 0-100 pronunciation score to a letter grade. Scores
// below every bound, including negative ones, fall through to F.
func CalculateGrade(score float64) Grade {
	for _, b := range gradeBounds {
		if score >= b.min {
			return b.grade
		}
	}
	return GradeF
}

// Rank orders grades from F (0) to A+ (10). N/A and unknown labels rank -1.
func (g Grade) Rank() int {
	for i, b := range gradeBounds {
		if b.grade == g {
			return len(gradeBounds) - i
		}
	}
	if g == GradeF {
		return 0
	}
	return -1
}

// Valid reports whether g is one of the known labels, N/A included.
func (g Grade) Valid() bool {
	return g == GradeNotAvailable || g.Rank() >= 0
}
