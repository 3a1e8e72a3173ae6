package cmd

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"healthbot/healthbot/controllers"
	"healthbot/healthbot/render"
	"healthbot/healthbot/types"

	"github.com/spf13/cobra"
)

// field is one line of an interactive form.
type field struct {
	label string
	value *string
}

func (a *app) editFields(fields []field) error {
	for _, f := range fields {
		v, err := a.in.Edit(f.label, *f.value)
		if err != nil {
			return err
		}
		*f.value = v
	}
	return nil
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your health profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile(cmd, a)
			if err != nil {
				return err
			}
			v := p.View()
			snap, id := v.Snapshot, p.Identity()
			return a.print(cmd, view{
				data: snap,
				text: func() string { return render.IdentityText(id) + "\n\n" + render.ProfileText(snap) },
				html: func() (template.HTML, error) {
					who, err := render.IdentityHTML(id)
					if err != nil {
						return "", err
					}
					list, err := render.MedicationsHTML(v.Medications)
					return who + "\n" + list, err
				},
			})
		},
	}
	cmd.AddCommand(
		sectionCmd(a, "basic", "Edit basic information", controllers.SectionBasicInfo),
		sectionCmd(a, "history", "Edit medical history", controllers.SectionMedicalHistory),
		sectionCmd(a, "allergies", "Edit allergies", controllers.SectionAllergies),
		sectionCmd(a, "lifestyle", "Edit lifestyle", controllers.SectionLifestyle),
		newMedsCmd(a),
	)
	return cmd
}

func loadProfile(cmd *cobra.Command, a *app) (*controllers.ProfileController, error) {
	p := controllers.NewProfileController(a.client, a.store, a.ui)
	if err := p.Load(cmd.Context()); err != nil {
		return nil, a.result(err)
	}
	return p, nil
}

// sectionCmd walks through the fields of one section, starting from the
// saved values, then saves that section only.
func sectionCmd(a *app, use, short string, section controllers.Section) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `. Each prompt shows the saved value: press Enter to keep it
or type - to clear it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile(cmd, a)
			if err != nil {
				return err
			}
			if err := editSection(a, p, section); err != nil {
				return err
			}
			return a.result(p.SaveSection(cmd.Context(), section))
		},
	}
}

func editSection(a *app, p *controllers.ProfileController, section controllers.Section) error {
	v := p.View()
	switch section {
	case controllers.SectionBasicInfo:
		f := v.BasicInfo
		err := a.editFields([]field{
			{"Full name", &f.FullName},
			{"Date of birth (YYYY-MM-DD)", &f.DateOfBirth},
			{"Gender", &f.Gender},
			{"Blood type", &f.BloodType},
			{"Height (cm)", &f.Height},
			{"Weight (kg)", &f.Weight},
			{"Phone", &f.Phone},
		})
		if err != nil {
			return err
		}
		p.EditBasicInfo(func(form *controllers.BasicInfoForm) { *form = f })

	case controllers.SectionMedicalHistory:
		f := v.MedicalHistory
		conditions := strings.Join(f.ChronicConditions, ", ")
		err := a.editFields([]field{
			{"Chronic conditions (comma separated)", &conditions},
			{"Past surgeries", &f.PastSurgeries},
			{"Family history", &f.FamilyHistory},
			{"Other conditions", &f.OtherConditions},
		})
		if err != nil {
			return err
		}
		f.ChronicConditions = splitList(conditions)
		p.EditMedicalHistory(func(form *controllers.MedicalHistoryForm) { *form = f })

	case controllers.SectionAllergies:
		f := v.Allergies
		err := a.editFields([]field{
			{"Drug allergies", &f.Drug},
			{"Food allergies", &f.Food},
			{"Other allergies", &f.Other},
		})
		if err != nil {
			return err
		}
		p.EditAllergies(func(form *controllers.AllergiesForm) { *form = f })

	case controllers.SectionLifestyle:
		f := v.Lifestyle
		err := a.editFields([]field{
			{"Exercise frequency", &f.ExerciseFrequency},
			{"Smoking status", &f.SmokingStatus},
			{"Alcohol consumption", &f.AlcoholConsumption},
			{"Sleep hours per night", &f.SleepHours},
			{"Diet type", &f.DietType},
			{"Stress level (1-10)", &f.StressLevel},
		})
		if err != nil {
			return err
		}
		p.EditLifestyle(func(form *controllers.LifestyleForm) { *form = f })

	default:
		return fmt.Errorf("%w: %q", controllers.ErrUnknownSection, section)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			return true
		}
	}
	return false
}

func newMedsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meds",
		Aliases: []string{"medications"},
		Short:   "List current medications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile(cmd, a)
			if err != nil {
				return err
			}
			meds := p.View().Medications
			return a.print(cmd, view{
				data: meds,
				text: func() string { return render.MedicationsText(meds) },
				html: func() (template.HTML, error) { return render.MedicationsHTML(meds) },
			})
		},
	}

	var med types.Medication
	var prescribedFor string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a medication",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !anyChanged(cmd, "name", "dosage", "frequency", "for") {
				fields := []field{
					{"Medication name", &med.MedicationName},
					{"Dosage", &med.Dosage},
					{"Frequency", &med.Frequency},
					{"Prescribed for", &prescribedFor},
				}
				if err := a.editFields(fields); err != nil {
					return err
				}
			}
			med.PrescribedFor = &prescribedFor

			p, err := loadProfile(cmd, a)
			if err != nil {
				return err
			}
			if err := p.AddMedication(cmd.Context(), med); err != nil {
				return a.result(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.MedicationsText(p.View().Medications))
			return nil
		},
	}
	add.Flags().StringVar(&med.MedicationName, "name", "", "medication name")
	add.Flags().StringVar(&med.Dosage, "dosage", "", "dosage, e.g. 10mg")
	add.Flags().StringVar(&med.Frequency, "frequency", "", "how often it is taken")
	add.Flags().StringVar(&prescribedFor, "for", "", "condition it was prescribed for")

	rm := &cobra.Command{
		Use:     "rm <n>",
		Aliases: []string{"delete"},
		Short:   "Delete a medication by its number in `meds`",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("medication number must be a positive integer, got %q", args[0])
			}
			p, err := loadProfile(cmd, a)
			if err != nil {
				return err
			}
			if err := p.DeleteMedication(cmd.Context(), n-1); err != nil {
				return a.result(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.MedicationsText(p.View().Medications))
			return nil
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}
