package services

// PeriodScore is a performance score tagged with the reporting period that
// produced it. Scores from different period lengths are not on the same
// scale; carrying the period in the type keeps a 7-day and a 90-day score
// from being compared by accident.
type PeriodScore struct {
	Value      int
	PeriodDays int
}

// Comparable reports whether two scores were computed over the same period
// length and may be meaningfully compared.
func (s PeriodScore) Comparable(other PeriodScore) bool {
	return s.PeriodDays == other.PeriodDays
}

// Score computes the 0-100 performance score from a listing's traffic
// metrics. Four independent weighted buckets summed together; no
// normalization across period lengths.
func Score(pageviews, users int, avgDuration, bounceRate float64) int {
	score := 0

	switch {
	case pageviews > 100:
		score += 40
	case pageviews > 50:
		score += 30
	case pageviews > 20:
		score += 20
	case pageviews > 10:
		score += 10
	}

	switch {
	case users > 50:
		score += 30
	case users > 25:
		score += 20
	case users > 10:
		score += 10
	}

	switch {
	case avgDuration > 120:
		score += 15
	case avgDuration > 60:
		score += 10
	case avgDuration > 30:
		score += 5
	}

	switch {
	case bounceRate < 0.3:
		score += 15
	case bounceRate < 0.5:
		score += 10
	case bounceRate < 0.7:
		score += 5
	}

	return score
}

// ScoreForPeriod wraps Score with its period tag.
func ScoreForPeriod(pageviews, users int, avgDuration, bounceRate float64, periodDays int) PeriodScore {
	return PeriodScore{
		Value:      Score(pageviews, users, avgDuration, bounceRate),
		PeriodDays: periodDays,
	}
}
