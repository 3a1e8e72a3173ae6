package render

import (
	"fmt"
	"strings"

	"healthbot/healthbot/types"
	"healthbot/healthbot/utils/color"

	"github.com/dustin/go-humanize"
)

// SessionsText lists sessions one per line, numbered from 1; the active one
// is starred.
func SessionsText(sessions []types.SessionSummary, active string) string {
	if len(sessions) == 0 {
		return color.ColorMuted("No chat history yet. Start a new conversation!")
	}
	var b strings.Builder
	for i, s := range sessions {
		line := fmt.Sprintf("%2d. %s", i+1, title(s.Title))
		if !s.UpdatedAt.IsZero() {
			line += color.ColorMuted("  " + humanize.Time(s.UpdatedAt.Time))
		}
		if s.ID == active {
			line = color.ColorActive("* ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func DocumentsText(docs []types.Document, uploading string) string {
	var b strings.Builder
	if uploading != "" {
		b.WriteString(color.ColorWarning("Uploading " + uploading + "..."))
		b.WriteByte('\n')
	}
	if len(docs) == 0 {
		b.WriteString(color.ColorMuted("No documents uploaded yet"))
		return b.String()
	}
	for i, d := range docs {
		fmt.Fprintf(&b, "%2d. 📄 %s %s\n", i+1, d.Filename, color.ColorMuted(fmt.Sprintf("(%d chunks)", d.ChunksCount)))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// MessageText renders one bubble with the speaker, time and formatted content.
func MessageText(e types.ThreadEntry) string {
	if e.Pending {
		return avatar(types.RoleAssistant) + " " + color.ColorMuted("...")
	}
	m := e.Message
	head := avatar(m.Role) + " "
	if m.Role == types.RoleUser {
		head += color.ColorUser("You")
	} else {
		head += color.ColorAssistant("Assistant")
	}
	if t := clock(m.Timestamp.Time); t != "" {
		head += " " + color.ColorMuted(t)
	}
	return head + "\n" + Terminal(m.Content)
}

func ThreadText(entries []types.ThreadEntry) string {
	if len(entries) == 0 {
		return color.ColorMuted("Ask me anything about your health.")
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, MessageText(e))
	}
	return strings.Join(parts, "\n\n")
}

func MedicationsText(meds []types.Medication) string {
	if len(meds) == 0 {
		return color.ColorMuted(`No medications added yet. Use "profile meds add" to get started.`)
	}
	var b strings.Builder
	for i, m := range meds {
		fmt.Fprintf(&b, "%2d. %s  %s, %s", i+1, color.Bold(m.MedicationName), m.Dosage, m.Frequency)
		if f := types.Deref(m.PrescribedFor); f != "" {
			b.WriteString(color.ColorMuted(" for " + f))
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func IdentityText(id types.Identity) string {
	return fmt.Sprintf("[%s] %s <%s>", color.ColorActive(id.Initials()), id.DisplayName(), id.Email)
}

// ProfileText summarises every saved section of a profile.
func ProfileText(p *types.Profile) string {
	var b strings.Builder
	section := func(name string) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(color.ColorPrompt(name))
		b.WriteByte('\n')
	}
	field := func(label, value string) {
		if value == "" {
			value = color.ColorMuted("-")
		}
		fmt.Fprintf(&b, "  %-22s %s\n", label+":", value)
	}
	num := func(n *int, unit string) string {
		if n == nil {
			return ""
		}
		return fmt.Sprintf("%d%s", *n, unit)
	}

	section("Basic information")
	if bi := p.BasicInfo; bi != nil {
		field("Full name", bi.FullName)
		field("Date of birth", bi.DateOfBirth)
		field("Gender", bi.Gender)
		field("Blood type", types.Deref(bi.BloodType))
		field("Height", num(bi.Height, " cm"))
		field("Weight", num(bi.Weight, " kg"))
		field("Phone", types.Deref(bi.Phone))
	} else {
		b.WriteString(color.ColorMuted("  not set") + "\n")
	}

	section("Medical history")
	if mh := p.MedicalHistory; mh != nil {
		field("Chronic conditions", strings.Join(mh.ChronicConditions, ", "))
		field("Past surgeries", types.Deref(mh.PastSurgeries))
		field("Family history", types.Deref(mh.FamilyHistory))
		field("Other conditions", types.Deref(mh.OtherConditions))
	} else {
		b.WriteString(color.ColorMuted("  not set") + "\n")
	}

	section("Allergies")
	if a := p.Allergies; a != nil {
		field("Drug", types.Deref(a.DrugAllergies))
		field("Food", types.Deref(a.FoodAllergies))
		field("Other", types.Deref(a.OtherAllergies))
	} else {
		b.WriteString(color.ColorMuted("  not set") + "\n")
	}

	section("Lifestyle")
	if l := p.Lifestyle; l != nil {
		field("Exercise", types.Deref(l.ExerciseFrequency))
		field("Smoking", types.Deref(l.SmokingStatus))
		field("Alcohol", types.Deref(l.AlcoholConsumption))
		field("Sleep", num(l.SleepHours, " h"))
		field("Diet", types.Deref(l.DietType))
		field("Stress level", num(l.StressLevel, "/10"))
	} else {
		b.WriteString(color.ColorMuted("  not set") + "\n")
	}

	section("Medications")
	b.WriteString(MedicationsText(p.Medications))
	return b.String()
}
