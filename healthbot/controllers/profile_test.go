package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"healthbot/healthbot/sources/api"
	"healthbot/healthbot/types"
)

func ptr[T any](v T) *T { return &v }

func seededProfile() types.Profile {
	return types.Profile{
		BasicInfo: &types.BasicInfo{
			FullName: "Jane Doe", DateOfBirth: "1990-01-01", Gender: "female",
			BloodType: ptr("A+"), Height: ptr(170), Weight: nil, Phone: ptr("555"),
		},
		Lifestyle: &types.Lifestyle{
			SmokingStatus: ptr("never"), SleepHours: ptr(7), DietType: ptr("vegetarian"),
		},
		Medications: []types.Medication{
			{MedicationName: "A", Dosage: "1mg", Frequency: "daily", PrescribedFor: ptr("")},
			{MedicationName: "B", Dosage: "2mg", Frequency: "weekly", PrescribedFor: ptr("")},
		},
	}
}

func loadedProfile(t *testing.T) (*fixture, *ProfileController) {
	t.Helper()
	f := newFixture(t).signedIn(t)
	f.srv.SetProfile(testEmail, seededProfile())
	c := NewProfileController(f.client, f.store, f.ui)
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return f, c
}

func TestProfileLoadWithoutToken(t *testing.T) {
	f := newFixture(t)
	c := NewProfileController(f.client, f.store, f.ui)
	if err := c.Load(context.Background()); !errors.Is(err, api.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if r := f.ui.Routes(); len(r) != 1 || r[0] != RouteSignIn {
		t.Errorf("expected redirect, got %v", r)
	}
}

func TestProfileLoadPopulatesForms(t *testing.T) {
	_, c := loadedProfile(t)
	v := c.View()

	want := BasicInfoForm{FullName: "Jane Doe", DateOfBirth: "1990-01-01", Gender: "female", BloodType: "A+", Height: "170", Phone: "555"}
	if v.BasicInfo != want {
		t.Errorf("basic info form %+v, want %+v", v.BasicInfo, want)
	}
	if v.Lifestyle.SmokingStatus != "never" || v.Lifestyle.SleepHours != "7" || v.Lifestyle.ExerciseFrequency != "" {
		t.Errorf("unexpected lifestyle form %+v", v.Lifestyle)
	}
	if v.Lifestyle.StressLevel != "5" {
		t.Errorf("absent stress level keeps the default, got %q", v.Lifestyle.StressLevel)
	}
	if v.Allergies != (AllergiesForm{}) || len(v.MedicalHistory.ChronicConditions) != 0 {
		t.Error("absent blocks leave empty forms")
	}
	if len(v.Medications) != 2 || v.Snapshot == nil {
		t.Errorf("medications and snapshot should be set, got %+v", v.Medications)
	}
}

func TestSwitchTabKeepsForms(t *testing.T) {
	_, c := loadedProfile(t)
	c.EditAllergies(func(f *AllergiesForm) { f.Food = "peanuts" })
	c.SwitchTab(TabMedications)

	v := c.View()
	if v.Tab != TabMedications || v.Allergies.Food != "peanuts" {
		t.Errorf("tab switch lost state: %+v", v)
	}
}

func TestSaveSectionLeavesOtherFormsAlone(t *testing.T) {
	f, c := loadedProfile(t)
	ctx := context.Background()

	c.EditAllergies(func(a *AllergiesForm) { a.Drug = "penicillin" })
	c.EditLifestyle(func(l *LifestyleForm) { l.SleepHours = "9" })
	c.EditBasicInfo(func(b *BasicInfoForm) { b.Phone = "  777 " })

	if err := c.SaveBasicInfo(ctx); err != nil {
		t.Fatal(err)
	}
	v := c.View()
	if v.Allergies.Drug != "penicillin" || v.Lifestyle.SleepHours != "9" {
		t.Errorf("unsaved edits in other sections were lost: %+v %+v", v.Allergies, v.Lifestyle)
	}
	if v.BasicInfo.Phone != "  777 " {
		t.Errorf("saved form should reflect the server, got %q", v.BasicInfo.Phone)
	}
	if n := f.ui.LastNotice(); n.Text != "✅ Basic information saved successfully!" {
		t.Errorf("unexpected notice %+v", n)
	}
	if f.srv.Profile(testEmail).Allergies != nil {
		t.Error("allergies were never saved")
	}
}

func TestSaveSendsNullForUnparsedNumbers(t *testing.T) {
	f, c := loadedProfile(t)
	ctx := context.Background()

	c.EditBasicInfo(func(b *BasicInfoForm) {
		b.Height = "tall"
		b.Weight = "72kg"
	})
	c.EditLifestyle(func(l *LifestyleForm) {
		l.SmokingStatus = ""
		l.SleepHours = "0"
		l.StressLevel = "8"
	})
	if err := c.SaveBasicInfo(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveLifestyle(ctx); err != nil {
		t.Fatal(err)
	}

	p := f.srv.Profile(testEmail)
	if p.BasicInfo.Height != nil || p.BasicInfo.Weight == nil || *p.BasicInfo.Weight != 72 {
		t.Errorf("unexpected numbers %+v", p.BasicInfo)
	}
	if p.Lifestyle.SmokingStatus != nil || p.Lifestyle.SleepHours != nil {
		t.Errorf("empty radio and zero sleep should be null, got %+v", p.Lifestyle)
	}
	if p.Lifestyle.StressLevel == nil || *p.Lifestyle.StressLevel != 8 {
		t.Errorf("unexpected stress level %v", p.Lifestyle.StressLevel)
	}
	if v := c.View(); v.BasicInfo.Height != "" || v.BasicInfo.Weight != "72" {
		t.Errorf("saved form should be refilled from the server, got %+v", v.BasicInfo)
	}
}

func TestSaveMedicalHistorySendsEmptyList(t *testing.T) {
	f, c := loadedProfile(t)
	if err := c.SaveMedicalHistory(context.Background()); err != nil {
		t.Fatal(err)
	}
	mh := f.srv.Profile(testEmail).MedicalHistory
	if mh == nil || mh.ChronicConditions == nil || len(mh.ChronicConditions) != 0 {
		t.Errorf("expected an empty condition list, got %+v", mh)
	}
}

func TestSaveFailureKeepsForms(t *testing.T) {
	f, c := loadedProfile(t)
	f.srv.FailNext(http.MethodPost, "/api/profile/allergies", http.StatusUnprocessableEntity, "food_allergies: too long")
	c.EditAllergies(func(a *AllergiesForm) { a.Food = "everything" })

	if err := c.SaveAllergies(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if n := f.ui.LastNotice(); n.Text != "❌ Failed to save: food_allergies: too long" {
		t.Errorf("unexpected notice %+v", n)
	}
	if c.View().Allergies.Food != "everything" {
		t.Error("form must keep the user's input")
	}
}

func TestSaveUnknownSection(t *testing.T) {
	f, c := loadedProfile(t)
	before := f.srv.TotalHits()
	if err := c.SaveSection(context.Background(), "vitals"); !errors.Is(err, ErrUnknownSection) {
		t.Errorf("expected ErrUnknownSection, got %v", err)
	}
	if f.srv.TotalHits() != before {
		t.Error("unknown section must not call the backend")
	}
}

func TestAddMedication(t *testing.T) {
	f, c := loadedProfile(t)
	ctx := context.Background()

	if err := c.AddMedication(ctx, types.Medication{MedicationName: "C", Dosage: " "}); !errors.Is(err, ErrMedicationIncomplete) {
		t.Errorf("expected ErrMedicationIncomplete, got %v", err)
	}
	if f.srv.Hits(http.MethodPost, "/api/profile/medications") != 0 {
		t.Error("incomplete medication must not be sent")
	}

	if err := c.AddMedication(ctx, types.Medication{MedicationName: "C", Dosage: "3mg", Frequency: "daily"}); err != nil {
		t.Fatal(err)
	}
	v := c.View()
	if len(v.Medications) != 3 || v.Medications[2].MedicationName != "C" {
		t.Errorf("list should be reloaded, got %+v", v.Medications)
	}
	if n := f.ui.LastNotice(); n.Text != "✅ Medication added successfully!" {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestDeleteMedicationTrustsServerList(t *testing.T) {
	f, c := loadedProfile(t)

	if err := c.DeleteMedication(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	server := f.srv.Profile(testEmail).Medications
	v := c.View()
	if len(v.Medications) != 1 || len(server) != 1 || v.Medications[0].Key() != server[0].Key() {
		t.Errorf("view %+v should equal server %+v", v.Medications, server)
	}
	if v.Medications[0].MedicationName != "B" {
		t.Errorf("wrong medication removed, left %+v", v.Medications)
	}
	if p := f.ui.Prompts(); len(p) != 1 || p[0] != "Delete this medication?" {
		t.Errorf("unexpected prompts %v", p)
	}
}

func TestDeleteMedicationFollowsMovedRecord(t *testing.T) {
	f, c := loadedProfile(t)
	p := seededProfile()
	p.Medications = append([]types.Medication{{MedicationName: "X", Dosage: "9mg", Frequency: "daily", PrescribedFor: ptr("")}}, p.Medications...)
	f.srv.SetProfile(testEmail, p)

	if err := c.DeleteMedication(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, m := range f.srv.Profile(testEmail).Medications {
		names = append(names, m.MedicationName)
	}
	if len(names) != 2 || names[0] != "X" || names[1] != "A" {
		t.Errorf("expected B removed from its new position, got %v", names)
	}
}

func TestDeleteMedicationStale(t *testing.T) {
	f, c := loadedProfile(t)
	p := seededProfile()
	p.Medications = p.Medications[:1]
	f.srv.SetProfile(testEmail, p)

	err := c.DeleteMedication(context.Background(), 1)
	if !errors.Is(err, ErrMedicationStale) {
		t.Fatalf("expected ErrMedicationStale, got %v", err)
	}
	if f.srv.Hits(http.MethodDelete, "/api/profile/medications/{index}") != 0 {
		t.Error("nothing should be deleted")
	}
	if v := c.View(); len(v.Medications) != 1 {
		t.Errorf("list should be refreshed, got %+v", v.Medications)
	}
}

func TestDeleteMedicationDeclined(t *testing.T) {
	f, c := loadedProfile(t)
	f.ui.answer = false
	before := f.srv.TotalHits()
	if err := c.DeleteMedication(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if f.srv.TotalHits() != before {
		t.Error("declined delete must not call the backend")
	}
}

func TestProfileUnauthorized(t *testing.T) {
	f, c := loadedProfile(t)
	f.srv.FailNext(http.MethodPost, "/api/profile/lifestyle", http.StatusUnauthorized, "Could not validate credentials")

	if err := c.SaveLifestyle(context.Background()); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	f.assertSignedOut(t)
}

func TestLeadingInt(t *testing.T) {
	cases := []struct {
		in   string
		want *int
	}{
		{"170", ptr(170)},
		{"  72kg", ptr(72)},
		{"4.5", ptr(4)},
		{"0", nil},
		{"", nil},
		{"abc", nil},
		{"-", nil},
	}
	for _, c := range cases {
		got := positiveInt(c.in)
		if (got == nil) != (c.want == nil) || (got != nil && *got != *c.want) {
			t.Errorf("positiveInt(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
