package models

// DefaultRequiredAttendance is applied when a subject is created without a threshold.
const DefaultRequiredAttendance = 75

// MaxClassCount caps either counter of a subject.
const MaxClassCount = 100000

// Subject is a tracked course with rolling attendance counters.
// The JSON form is the persisted snapshot format.
type Subject struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	RequiredAttendance int    `json:"requiredAttendance"`
	TotalClasses       int    `json:"totalClasses"`
	AttendedClasses    int    `json:"attendedClasses"`
	Color              string `json:"color"`
}

// Percentage returns attended/total as a percentage, 0 when no classes were held.
func (s Subject) Percentage() float64 {
	if s.TotalClasses == 0 {
		return 0
	}
	return float64(s.AttendedClasses) / float64(s.TotalClasses) * 100
}

// Projection tells how many upcoming classes can be skipped, or must be attended
// in a row, to sit at the required percentage.
// Unlimited is set when the requirement is 0%, CanMiss then holds UnlimitedMisses.
// Unreachable is set when a 100% requirement can no longer be met.
type Projection struct {
	CanMiss      int  `json:"canMiss"`
	NeedToAttend int  `json:"needToAttend"`
	Unlimited    bool `json:"unlimited,omitempty"`
	Unreachable  bool `json:"unreachable,omitempty"`
}

// UnlimitedMisses is the CanMiss sentinel for subjects without a requirement.
const UnlimitedMisses = -1

// SubjectSummary pairs a subject with its derived figures.
type SubjectSummary struct {
	Subject
	Percentage float64    `json:"percentage"`
	Projection Projection `json:"projection"`
}
