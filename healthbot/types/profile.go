// healthbot/types/profile.go
package types

import (
	"strings"

	"github.com/google/uuid"
)

// Profile mirrors GET /api/profile. Sections the user never saved come back null.
type Profile struct {
	UserID         string          `json:"user_id,omitempty"`
	BasicInfo      *BasicInfo      `json:"basic_info"`
	MedicalHistory *MedicalHistory `json:"medical_history"`
	Allergies      *Allergies      `json:"allergies"`
	Lifestyle      *Lifestyle      `json:"lifestyle"`
	Medications    []Medication    `json:"medications"`
}

// Optional numbers are pointers without omitempty: an unparsed input is sent as an explicit null.
type BasicInfo struct {
	FullName    string  `json:"full_name"`
	DateOfBirth string  `json:"date_of_birth"`
	Gender      string  `json:"gender"`
	BloodType   *string `json:"blood_type"`
	Height      *int    `json:"height"`
	Weight      *int    `json:"weight"`
	Phone       *string `json:"phone"`
}

type MedicalHistory struct {
	ChronicConditions []string `json:"chronic_conditions"`
	PastSurgeries     *string  `json:"past_surgeries"`
	FamilyHistory     *string  `json:"family_history"`
	OtherConditions   *string  `json:"other_conditions"`
}

type Allergies struct {
	DrugAllergies  *string `json:"drug_allergies"`
	FoodAllergies  *string `json:"food_allergies"`
	OtherAllergies *string `json:"other_allergies"`
}

type Lifestyle struct {
	ExerciseFrequency  *string `json:"exercise_frequency"`
	SmokingStatus      *string `json:"smoking_status"`
	AlcoholConsumption *string `json:"alcohol_consumption"`
	SleepHours         *int    `json:"sleep_hours"`
	DietType           *string `json:"diet_type"`
	StressLevel        *int    `json:"stress_level"`
}

type Medication struct {
	MedicationName string  `json:"medication_name"`
	Dosage         string  `json:"dosage"`
	Frequency      string  `json:"frequency"`
	PrescribedFor  *string `json:"prescribed_for"`
}

var medicationNamespace = uuid.MustParse("6f1c2a52-5b0e-4c55-9a57-3c1f0f6c8e21")

// Key identifies a medication by content. The backend addresses medications by
// list position only, so the key is what lets a stale index be detected.
func (m Medication) Key() uuid.UUID {
	parts := []string{
		strings.TrimSpace(m.MedicationName),
		strings.TrimSpace(m.Dosage),
		strings.TrimSpace(m.Frequency),
		strings.TrimSpace(Deref(m.PrescribedFor)),
	}
	return uuid.NewSHA1(medicationNamespace, []byte(strings.Join(parts, "\x1f")))
}

// Deref returns "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
