package controllers

import (
	"strconv"
	"strings"

	"healthbot/healthbot/types"
)

// Section is one independently saved block of the profile.
type Section string

const (
	SectionBasicInfo      Section = "basic-info"
	SectionMedicalHistory Section = "medical-history"
	SectionAllergies      Section = "allergies"
	SectionLifestyle      Section = "lifestyle"
)

var Sections = []Section{SectionBasicInfo, SectionMedicalHistory, SectionAllergies, SectionLifestyle}

const defaultStressLevel = "5"

// Forms hold raw input exactly as typed; conversion happens on save.

type BasicInfoForm struct {
	FullName    string
	DateOfBirth string
	Gender      string
	BloodType   string
	Height      string
	Weight      string
	Phone       string
}

type MedicalHistoryForm struct {
	ChronicConditions []string
	PastSurgeries     string
	FamilyHistory     string
	OtherConditions   string
}

type AllergiesForm struct {
	Drug  string
	Food  string
	Other string
}

// LifestyleForm radio fields are "" when nothing is selected.
type LifestyleForm struct {
	ExerciseFrequency  string
	SmokingStatus      string
	AlcoholConsumption string
	SleepHours         string
	DietType           string
	StressLevel        string
}

func defaultLifestyle() LifestyleForm {
	return LifestyleForm{StressLevel: defaultStressLevel}
}

func (f BasicInfoForm) payload() types.BasicInfo {
	return types.BasicInfo{
		FullName:    f.FullName,
		DateOfBirth: f.DateOfBirth,
		Gender:      f.Gender,
		BloodType:   &f.BloodType,
		Height:      positiveInt(f.Height),
		Weight:      positiveInt(f.Weight),
		Phone:       &f.Phone,
	}
}

func (f MedicalHistoryForm) payload() types.MedicalHistory {
	conditions := append([]string{}, f.ChronicConditions...)
	return types.MedicalHistory{
		ChronicConditions: conditions,
		PastSurgeries:     &f.PastSurgeries,
		FamilyHistory:     &f.FamilyHistory,
		OtherConditions:   &f.OtherConditions,
	}
}

func (f AllergiesForm) payload() types.Allergies {
	return types.Allergies{
		DrugAllergies:  &f.Drug,
		FoodAllergies:  &f.Food,
		OtherAllergies: &f.Other,
	}
}

func (f LifestyleForm) payload() types.Lifestyle {
	l := types.Lifestyle{
		ExerciseFrequency:  selected(f.ExerciseFrequency),
		SmokingStatus:      selected(f.SmokingStatus),
		AlcoholConsumption: selected(f.AlcoholConsumption),
		SleepHours:         positiveInt(f.SleepHours),
		DietType:           &f.DietType,
	}
	if n, ok := leadingInt(f.StressLevel); ok {
		l.StressLevel = &n
	}
	return l
}

func basicInfoForm(b *types.BasicInfo) BasicInfoForm {
	if b == nil {
		return BasicInfoForm{}
	}
	return BasicInfoForm{
		FullName:    b.FullName,
		DateOfBirth: b.DateOfBirth,
		Gender:      b.Gender,
		BloodType:   types.Deref(b.BloodType),
		Height:      formatInt(b.Height),
		Weight:      formatInt(b.Weight),
		Phone:       types.Deref(b.Phone),
	}
}

func medicalHistoryForm(m *types.MedicalHistory) MedicalHistoryForm {
	if m == nil {
		return MedicalHistoryForm{}
	}
	return MedicalHistoryForm{
		ChronicConditions: append([]string(nil), m.ChronicConditions...),
		PastSurgeries:     types.Deref(m.PastSurgeries),
		FamilyHistory:     types.Deref(m.FamilyHistory),
		OtherConditions:   types.Deref(m.OtherConditions),
	}
}

func allergiesForm(a *types.Allergies) AllergiesForm {
	if a == nil {
		return AllergiesForm{}
	}
	return AllergiesForm{
		Drug:  types.Deref(a.DrugAllergies),
		Food:  types.Deref(a.FoodAllergies),
		Other: types.Deref(a.OtherAllergies),
	}
}

func lifestyleForm(l *types.Lifestyle) LifestyleForm {
	f := defaultLifestyle()
	if l == nil {
		return f
	}
	f.ExerciseFrequency = types.Deref(l.ExerciseFrequency)
	f.SmokingStatus = types.Deref(l.SmokingStatus)
	f.AlcoholConsumption = types.Deref(l.AlcoholConsumption)
	f.SleepHours = formatInt(l.SleepHours)
	f.DietType = types.Deref(l.DietType)
	if s := formatInt(l.StressLevel); s != "" {
		f.StressLevel = s
	}
	return f
}

// leadingInt reads an optionally signed run of digits after leading spaces,
// ignoring whatever follows ("170cm" is 170).
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// positiveInt is nil for unparsable input and for zero, which the backend
// reads as "unset".
func positiveInt(s string) *int {
	n, ok := leadingInt(s)
	if !ok || n == 0 {
		return nil
	}
	return &n
}

func formatInt(n *int) string {
	if n == nil || *n == 0 {
		return ""
	}
	return strconv.Itoa(*n)
}

func selected(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
