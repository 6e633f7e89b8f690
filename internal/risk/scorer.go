package risk

// Band is the severity classification derived from a numeric score.
type Band string

const (
	BandLow      Band = "low"
	BandMedium   Band = "medium"
	BandHigh     Band = "high"
	BandCritical Band = "critical"
)

// Result is the scorer output. SectionScores are retained for audit
// display; Score is the clamped sum.
type Result struct {
	Score    int           `json:"score"`
	Band     Band          `json:"band"`
	Sections SectionScores `json:"sections"`
}

// SectionScores breaks the total down by questionnaire section, pre-clamp.
type SectionScores struct {
	PhysicalSafety     int `json:"physical_safety"`
	HealthAndWellBeing int `json:"health_and_well_being"`
	CyberVulnerability int `json:"cyber_vulnerability"`
	SenseOfSafety      int `json:"sense_of_safety"`
}

// maxScore bounds the total. Increments are summed and then clamped, never
// scaled proportionally: the rule-based increments are what field auditors
// reason about, and normalization would detach the stored score from them.
const maxScore = 100

// Score maps an assessment to its risk score and severity band. It is
// deterministic and side-effect free: the same questionnaire always yields
// the same result, so the engine computes it exactly once per completion
// and the stored score can be re-derived for audit at any time.
func Score(a Assessment) Result {
	sections := SectionScores{
		PhysicalSafety:     scorePhysicalSafety(a),
		HealthAndWellBeing: scoreHealth(a),
		CyberVulnerability: scoreCyber(a),
		SenseOfSafety:      scoreSenseOfSafety(a),
	}

	total := sections.PhysicalSafety + sections.HealthAndWellBeing +
		sections.CyberVulnerability + sections.SenseOfSafety
	if total > maxScore {
		total = maxScore
	}

	return Result{
		Score:    total,
		Band:     BandFor(total),
		Sections: sections,
	}
}

// BandFor maps a score to its severity band. Thresholds are fixed with
// inclusive lower bounds: 0-30 low, 31-50 medium, 51-70 high, 71-100 critical.
func BandFor(score int) Band {
	switch {
	case score <= 30:
		return BandLow
	case score <= 50:
		return BandMedium
	case score <= 70:
		return BandHigh
	default:
		return BandCritical
	}
}

func scorePhysicalSafety(a Assessment) int {
	score := 0
	if !a.AwareOfEmergencyNumbers {
		score += 10
	}
	switch a.AloneTime {
	case AloneOften:
		score += 10
	case AloneSometimes:
		score += 5
	}
	if a.HouseholdHelp == HelpUnverified {
		score += 5
	}
	if !a.CCTVNearby {
		score += 5
	}
	if a.PoorLighting {
		score += 5
	}
	switch a.Mobility {
	case LimitedMobility:
		score += 15
	case NeedsSupport:
		score += 8
	}
	return score
}

func scoreHealth(a Assessment) int {
	score := 0
	switch a.IllnessType {
	case IllnessChronic:
		score += 10
	case IllnessAcute:
		score += 5
	}
	switch a.PhysicalStatus {
	case PhysicalPoor:
		score += 10
	case PhysicalModerate:
		score += 5
	}
	switch a.MentalStatus {
	case MentalPoor:
		score += 10
	case MentalNeedsSupport:
		score += 5
	}
	return score
}

func scoreCyber(a Assessment) int {
	// The whole section is gated on smartphone use; a citizen who is not
	// online has no cyber exposure regardless of the other answers.
	if !a.UsesSmartphone {
		return 0
	}
	score := 0
	if a.PastCyberFraudVictim {
		score += 15
	} else if a.CyberFraudAttempt {
		score += 10
	}
	switch a.OnlineActivity {
	case ActivityHigh:
		score += 5
	case ActivityMedium:
		score += 3
	}
	if a.FrequentOnlineDeliveries {
		score += 5
	}
	return score
}

func scoreSenseOfSafety(a Assessment) int {
	if !a.FeelsSafeAtHome {
		return 10
	}
	return 0
}
