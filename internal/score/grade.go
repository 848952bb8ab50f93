package score

// Grade maps a 0-100 score to a letter grade. Boundary values are
// inclusive at the lower bound of each band.
func Grade(score int) string {
	switch {
	case score >= 80:
		return "A+"
	case score >= 70:
		return "A"
	case score >= 60:
		return "B"
	case score >= 50:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}
