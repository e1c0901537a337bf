package scoring

// Tier is the qualitative band of a toxicity percentage.
type Tier string

const (
	TierHealthy    Tier = "Healthy"
	TierManageable Tier = "Manageable"
	TierConcerning Tier = "Concerning"
	TierToxic      Tier = "Toxic"
)

// bands are checked top-down; each entry owns [min, next band's min).
var bands = []struct {
	min  int
	tier Tier
}{
	{75, TierToxic},
	{50, TierConcerning},
	{25, TierManageable},
	{0, TierHealthy},
}

var advice = map[Tier]string{
	TierHealthy:    "Healthy dynamics! Keep communicating openly and supporting each other.",
	TierManageable: "Some manageable issues detected. Consider discussing your concerns openly.",
	TierConcerning: "Concerning patterns detected. Setting clear boundaries may help improve your relationship.",
	TierToxic:      "High toxicity detected! Consider seeking professional guidance or support resources.",
}

// Tiers lists all tiers from healthiest to most toxic.
func Tiers() []Tier {
	return []Tier{TierHealthy, TierManageable, TierConcerning, TierToxic}
}

// TierFor classifies a percent. Boundary values belong to the higher tier.
func TierFor(percent int) Tier {
	for _, b := range bands {
		if percent >= b.min {
			return b.tier
		}
	}
	return TierHealthy
}

// AdviceFor returns the fixed advice message for a tier.
func AdviceFor(t Tier) string { return advice[t] }

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	_, ok := advice[t]
	return ok
}
