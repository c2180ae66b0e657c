package ledger

// Milestone is a lifetime focus threshold. Threshold is compared in seconds.
type Milestone struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Subtitle  string `json:"subtitle"`
	Message   string `json:"message"`
	Threshold int64  `json:"requirement"`
}

var Milestones = []Milestone{
	{
		ID:        1,
		Name:      "First Focus",
		Subtitle:  "Completed your first focused minute",
		Message:   "Every streak starts with a single minute.",
		Threshold: 60,
	},
	{
		ID:        2,
		Name:      "Deep Work",
		Subtitle:  "Focus time reached 5h 20min",
		Message:   "Focus turns time into something that counts.",
		Threshold: 5*3600 + 20*60,
	},
	{
		ID:        3,
		Name:      "Full Day",
		Subtitle:  "Focus time reached 24h",
		Message:   "A whole day of attention, one session at a time.",
		Threshold: 24 * 3600,
	},
	{
		ID:        4,
		Name:      "Island",
		Subtitle:  "Focus time reached 36h",
		Message:   "Time remembers all of your effort.",
		Threshold: 36 * 3600,
	},
	{
		ID:        5,
		Name:      "Centurion",
		Subtitle:  "Focus time reached 100h",
		Message:   "One hundred hours of showing up.",
		Threshold: 100 * 3600,
	},
}

// Crossed returns the milestones whose threshold lies in (before, after].
func Crossed(before, after int64) []Milestone {
	var out []Milestone
	for _, m := range Milestones {
		if before < m.Threshold && m.Threshold <= after {
			out = append(out, m)
		}
	}
	return out
}

// Unlocked returns every milestone reached by a lifetime total.
func Unlocked(lifetimeSeconds int64) []Milestone {
	return Crossed(-1, lifetimeSeconds)
}
