package service

import "github.com/noah-isme/attendance-tracker/internal/models"

// OverallAttendance returns the weighted percentage across all subjects:
// the sum of attended classes over the sum of held classes. It is 0 when no
// class has been held.
func OverallAttendance(subjects []models.Subject) float64 {
	var attended, total int
	for _, s := range subjects {
		attended += s.AttendedClasses
		total += s.TotalClasses
	}
	if total == 0 {
		return 0
	}
	return float64(attended) / float64(total) * 100
}

// ProjectAttendance computes how many classes the subject can still miss, or how
// many it has to attend in a row, relative to its required percentage.
// Comparisons are done in integer space (attended*100 vs required*total) so a
// ratio sitting exactly on the threshold is never misread through rounding.
// Both answers are closed forms, so the cost does not grow with the counters.
func ProjectAttendance(s models.Subject) models.Projection {
	if s.TotalClasses <= 0 {
		return models.Projection{}
	}
	required := int64(clampPercent(s.RequiredAttendance))
	total, attended := int64(s.TotalClasses), int64(s.AttendedClasses)

	if attended*100 <= required*total {
		if required == 100 && attended < total {
			return models.Projection{Unreachable: true}
		}
		// Smallest n with 100*(attended+n) >= required*(total+n).
		deficit := required*total - attended*100
		if deficit <= 0 {
			return models.Projection{}
		}
		need := (deficit + 100 - required - 1) / (100 - required)
		return models.Projection{NeedToAttend: int(need)}
	}

	if required == 0 {
		return models.Projection{CanMiss: models.UnlimitedMisses, Unlimited: true}
	}
	canMiss := (attended*100 - required*total) / required
	if canMiss < 0 {
		canMiss = 0
	}
	return models.Projection{CanMiss: int(canMiss)}
}

// Summarize pairs each subject with its percentage and projection, keeping order.
func Summarize(subjects []models.Subject) []models.SubjectSummary {
	out := make([]models.SubjectSummary, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, models.SubjectSummary{
			Subject:    s,
			Percentage: s.Percentage(),
			Projection: ProjectAttendance(s),
		})
	}
	return out
}

func clampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
