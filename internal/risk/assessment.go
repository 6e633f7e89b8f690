// Package risk scores an officer's on-site observations into a bounded
// risk score and severity band.
//
// Domain purity: no I/O, no context.Context, no clock. Scoring is a total
// deterministic function so the persisted score can always be re-derived
// from the stored assessment.
package risk

import dErrors "vigil/pkg/domain-errors"

// Closed string enums for each questionnaire answer. String values are the
// wire format; Parse functions enforce the closed set at the API boundary.

// AloneTime captures how often the citizen is alone at home.
type AloneTime string

const (
	AloneOften     AloneTime = "often"
	AloneSometimes AloneTime = "sometimes"
	AloneRarely    AloneTime = "rarely"
)

// HouseholdHelp captures domestic help presence and verification status.
type HouseholdHelp string

const (
	HelpNone       HouseholdHelp = "none"
	HelpVerified   HouseholdHelp = "verified"
	HelpUnverified HouseholdHelp = "unverified"
)

// Mobility captures the citizen's physical mobility.
type Mobility string

const (
	FullyMobile     Mobility = "fully_mobile"
	NeedsSupport    Mobility = "needs_support"
	LimitedMobility Mobility = "limited_mobility"
)

// IllnessType captures ongoing illness.
type IllnessType string

const (
	IllnessNone    IllnessType = "none"
	IllnessAcute   IllnessType = "acute"
	IllnessChronic IllnessType = "chronic"
)

// PhysicalStatus captures observed physical condition.
type PhysicalStatus string

const (
	PhysicalGood     PhysicalStatus = "good"
	PhysicalModerate PhysicalStatus = "moderate"
	PhysicalPoor     PhysicalStatus = "poor"
)

// MentalStatus captures observed mental condition.
type MentalStatus string

const (
	MentalGood         MentalStatus = "good"
	MentalNeedsSupport MentalStatus = "needs_support"
	MentalPoor         MentalStatus = "poor"
)

// OnlineActivity captures how active the citizen is online.
type OnlineActivity string

const (
	ActivityLow    OnlineActivity = "low"
	ActivityMedium OnlineActivity = "medium"
	ActivityHigh   OnlineActivity = "high"
)

// Assessment is the four-section questionnaire recorded at visit completion.
type Assessment struct {
	// Physical safety
	AwareOfEmergencyNumbers bool          `json:"aware_of_emergency_numbers"`
	AloneTime               AloneTime     `json:"alone_time"`
	HouseholdHelp           HouseholdHelp `json:"household_help"`
	CCTVNearby              bool          `json:"cctv_nearby"`
	PoorLighting            bool          `json:"poor_lighting"`
	Mobility                Mobility      `json:"mobility"`

	// Health and mental well-being
	IllnessType    IllnessType    `json:"illness_type"`
	PhysicalStatus PhysicalStatus `json:"physical_status"`
	MentalStatus   MentalStatus   `json:"mental_status"`

	// Cyber vulnerability. The sub-answers are only evaluated when
	// UsesSmartphone is true.
	UsesSmartphone           bool           `json:"uses_smartphone"`
	PastCyberFraudVictim     bool           `json:"past_cyber_fraud_victim"`
	CyberFraudAttempt        bool           `json:"cyber_fraud_attempt"`
	OnlineActivity           OnlineActivity `json:"online_activity"`
	FrequentOnlineDeliveries bool           `json:"frequent_online_deliveries"`

	// Sense of safety
	FeelsSafeAtHome bool `json:"feels_safe_at_home"`
}

// Validate checks that every enum answer belongs to its closed set.
func (a Assessment) Validate() error {
	switch a.AloneTime {
	case AloneOften, AloneSometimes, AloneRarely:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "alone_time must be one of often, sometimes, rarely; got %q", a.AloneTime)
	}
	switch a.HouseholdHelp {
	case HelpNone, HelpVerified, HelpUnverified:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "household_help must be one of none, verified, unverified; got %q", a.HouseholdHelp)
	}
	switch a.Mobility {
	case FullyMobile, NeedsSupport, LimitedMobility:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "mobility must be one of fully_mobile, needs_support, limited_mobility; got %q", a.Mobility)
	}
	switch a.IllnessType {
	case IllnessNone, IllnessAcute, IllnessChronic:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "illness_type must be one of none, acute, chronic; got %q", a.IllnessType)
	}
	switch a.PhysicalStatus {
	case PhysicalGood, PhysicalModerate, PhysicalPoor:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "physical_status must be one of good, moderate, poor; got %q", a.PhysicalStatus)
	}
	switch a.MentalStatus {
	case MentalGood, MentalNeedsSupport, MentalPoor:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "mental_status must be one of good, needs_support, poor; got %q", a.MentalStatus)
	}
	if a.UsesSmartphone {
		switch a.OnlineActivity {
		case ActivityLow, ActivityMedium, ActivityHigh:
		default:
			return dErrors.Newf(dErrors.CodeValidation, "online_activity must be one of low, medium, high; got %q", a.OnlineActivity)
		}
	}
	return nil
}
