// healthbot/controllers/profile.go
package controllers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"healthbot/healthbot/sources/api"
	"healthbot/healthbot/types"
	"healthbot/healthbot/utils/inflight"
	"healthbot/healthbot/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	promptDeleteMedication = "Delete this medication?"
	keyProfile             = "profile"
)

var (
	ErrUnknownSection       = errors.New("unknown profile section")
	ErrMedicationIncomplete = errors.New("medication name, dosage and frequency are required")
	// ErrMedicationStale means the medication shown to the user is no longer
	// on the server; nothing was deleted.
	ErrMedicationStale = errors.New("medication list changed")
)

type ProfileAPI interface {
	GetProfile(ctx context.Context) (*types.Profile, error)
	SaveBasicInfo(ctx context.Context, info types.BasicInfo) error
	SaveMedicalHistory(ctx context.Context, history types.MedicalHistory) error
	SaveAllergies(ctx context.Context, allergies types.Allergies) error
	SaveLifestyle(ctx context.Context, lifestyle types.Lifestyle) error
	AddMedication(ctx context.Context, med types.Medication) error
	DeleteMedication(ctx context.Context, index int) error
}

type Tab string

const (
	TabBasicInfo      Tab = "basic-info"
	TabMedicalHistory Tab = "medical-history"
	TabAllergies      Tab = "allergies"
	TabLifestyle      Tab = "lifestyle"
	TabMedications    Tab = "medications"
)

var Tabs = []Tab{TabBasicInfo, TabMedicalHistory, TabAllergies, TabLifestyle, TabMedications}

// ProfileView is the state of the profile page. Snapshot is the last profile
// received from the server; the forms hold what the user is editing.
type ProfileView struct {
	Tab            Tab
	Snapshot       *types.Profile
	BasicInfo      BasicInfoForm
	MedicalHistory MedicalHistoryForm
	Allergies      AllergiesForm
	Lifestyle      LifestyleForm
	Medications    []types.Medication
}

var sectionSaved = map[Section]string{
	SectionBasicInfo:      "✅ Basic information saved successfully!",
	SectionMedicalHistory: "✅ Medical history saved successfully!",
	SectionAllergies:      "✅ Allergies saved successfully!",
	SectionLifestyle:      "✅ Lifestyle information saved successfully!",
}

type ProfileController struct {
	api   ProfileAPI
	store IdentityStore
	ui    UI
	auth  *authGuard
	group inflight.Group

	mu   sync.Mutex
	view ProfileView
}

func NewProfileController(client ProfileAPI, store IdentityStore, ui UI) *ProfileController {
	return &ProfileController{
		api:   client,
		store: store,
		ui:    ui,
		auth:  newAuthGuard(store, ui),
		view:  ProfileView{Tab: TabBasicInfo, Lifestyle: defaultLifestyle()},
	}
}

func (c *ProfileController) View() ProfileView {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view
	v.Medications = slices.Clone(v.Medications)
	v.MedicalHistory.ChronicConditions = slices.Clone(v.MedicalHistory.ChronicConditions)
	return v
}

func (c *ProfileController) Identity() types.Identity {
	id, err := c.store.Identity()
	if err != nil {
		logging.ErrorLogger.Error("read identity", zap.Error(err))
	}
	return id
}

// SwitchTab only changes which section is visible.
func (c *ProfileController) SwitchTab(tab Tab) {
	c.mu.Lock()
	c.view.Tab = tab
	c.mu.Unlock()
	c.ui.Refresh(PanelTabs)
}

// Edit functions change a form in place, as typing would.

func (c *ProfileController) EditBasicInfo(fn func(*BasicInfoForm)) {
	c.edit(func(v *ProfileView) { fn(&v.BasicInfo) })
}

func (c *ProfileController) EditMedicalHistory(fn func(*MedicalHistoryForm)) {
	c.edit(func(v *ProfileView) { fn(&v.MedicalHistory) })
}

func (c *ProfileController) EditAllergies(fn func(*AllergiesForm)) {
	c.edit(func(v *ProfileView) { fn(&v.Allergies) })
}

func (c *ProfileController) EditLifestyle(fn func(*LifestyleForm)) {
	c.edit(func(v *ProfileView) { fn(&v.Lifestyle) })
}

func (c *ProfileController) edit(fn func(*ProfileView)) {
	c.mu.Lock()
	fn(&c.view)
	c.mu.Unlock()
	c.ui.Refresh(PanelForms)
}

// Load fetches the profile and fills every form from it. Blocks the server
// does not have leave their form at the defaults.
func (c *ProfileController) Load(ctx context.Context) error {
	if !c.Identity().SignedIn() {
		c.auth.handle(api.ErrNotSignedIn)
		return api.ErrNotSignedIn
	}
	return c.reload(ctx, Sections...)
}

// reload refreshes the snapshot and the medication list, and repopulates
// only the forms of the given sections.
func (c *ProfileController) reload(ctx context.Context, sections ...Section) error {
	err := inflight.Latest(&c.group, ctx, keyProfile, c.api.GetProfile, func(p *types.Profile) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.view.Snapshot = p
		c.view.Medications = slices.Clone(p.Medications)
		for _, s := range sections {
			switch s {
			case SectionBasicInfo:
				c.view.BasicInfo = basicInfoForm(p.BasicInfo)
			case SectionMedicalHistory:
				c.view.MedicalHistory = medicalHistoryForm(p.MedicalHistory)
			case SectionAllergies:
				c.view.Allergies = allergiesForm(p.Allergies)
			case SectionLifestyle:
				c.view.Lifestyle = lifestyleForm(p.Lifestyle)
			}
		}
	})
	if errors.Is(err, inflight.ErrSuperseded) {
		return nil
	}
	if err != nil {
		if !c.auth.handle(err) {
			logging.AppLogger.Warn("load profile failed", zap.Error(err))
		}
		return err
	}
	if len(sections) > 0 {
		c.ui.Refresh(PanelForms)
	}
	c.ui.Refresh(PanelMedications)
	return nil
}

func (c *ProfileController) SaveBasicInfo(ctx context.Context) error {
	return c.SaveSection(ctx, SectionBasicInfo)
}

func (c *ProfileController) SaveMedicalHistory(ctx context.Context) error {
	return c.SaveSection(ctx, SectionMedicalHistory)
}

func (c *ProfileController) SaveAllergies(ctx context.Context) error {
	return c.SaveSection(ctx, SectionAllergies)
}

func (c *ProfileController) SaveLifestyle(ctx context.Context) error {
	return c.SaveSection(ctx, SectionLifestyle)
}

// SaveSection posts the section's form. On success the profile is reloaded
// and only that section's form is refilled from it; on failure every form
// keeps what the user typed.
func (c *ProfileController) SaveSection(ctx context.Context, section Section) error {
	defer logging.LogDuration(ctx, "ProfileController.SaveSection")()

	c.mu.Lock()
	var save func(context.Context) error
	switch section {
	case SectionBasicInfo:
		p := c.view.BasicInfo.payload()
		save = func(ctx context.Context) error { return c.api.SaveBasicInfo(ctx, p) }
	case SectionMedicalHistory:
		p := c.view.MedicalHistory.payload()
		save = func(ctx context.Context) error { return c.api.SaveMedicalHistory(ctx, p) }
	case SectionAllergies:
		p := c.view.Allergies.payload()
		save = func(ctx context.Context) error { return c.api.SaveAllergies(ctx, p) }
	case SectionLifestyle:
		p := c.view.Lifestyle.payload()
		save = func(ctx context.Context) error { return c.api.SaveLifestyle(ctx, p) }
	}
	c.mu.Unlock()
	if save == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}

	if err := save(ctx); err != nil {
		c.reject(err, "❌ Failed to save: ", "❌ Failed to save. Please try again.")
		return err
	}
	logging.AppLogger.Info("profile section saved", zap.String("section", string(section)))
	c.ui.Notify(Notice{Level: LevelSuccess, Text: sectionSaved[section]})
	return c.reload(ctx, section)
}

// AddMedication appends a medication and reloads the list from the server.
func (c *ProfileController) AddMedication(ctx context.Context, med types.Medication) error {
	med.MedicationName = strings.TrimSpace(med.MedicationName)
	med.Dosage = strings.TrimSpace(med.Dosage)
	med.Frequency = strings.TrimSpace(med.Frequency)
	if med.MedicationName == "" || med.Dosage == "" || med.Frequency == "" {
		c.ui.Notify(Notice{Level: LevelError, Text: "Please fill in medication name, dosage and frequency.", TTL: bannerTTL})
		return ErrMedicationIncomplete
	}
	if med.PrescribedFor == nil {
		med.PrescribedFor = new(string)
	}

	if err := c.api.AddMedication(ctx, med); err != nil {
		c.reject(err, "❌ Failed to add: ", "❌ Failed to add medication. Please try again.")
		return err
	}
	c.ui.Notify(Notice{Level: LevelSuccess, Text: "✅ Medication added successfully!"})
	return c.reload(ctx)
}

// DeleteMedication removes the medication shown at index. The server only
// knows positions, so the current list is fetched first and the record is
// located by content; if it is gone nothing is deleted.
func (c *ProfileController) DeleteMedication(ctx context.Context, index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.view.Medications) {
		c.mu.Unlock()
		return fmt.Errorf("%w: no medication at %d", ErrMedicationStale, index)
	}
	key := c.view.Medications[index].Key()
	c.mu.Unlock()

	if !c.ui.Confirm(promptDeleteMedication) {
		return nil
	}

	err := c.group.Exclusive("delete-medication:"+key.String(), func() error {
		fresh, err := c.api.GetProfile(ctx)
		if err != nil {
			return err
		}
		pos := locateMedication(fresh.Medications, key, index)
		if pos < 0 {
			return ErrMedicationStale
		}
		if pos != index {
			logging.AppLogger.Info("medication moved before delete", zap.Int("shown_at", index), zap.Int("now_at", pos))
		}
		return c.api.DeleteMedication(ctx, pos)
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrMedicationStale):
		c.ui.Notify(Notice{Level: LevelError, Text: "This medication was changed elsewhere. The list has been refreshed.", TTL: bannerTTL})
		if rerr := c.reload(ctx); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	default:
		c.reject(err, "", "❌ Failed to delete medication.")
		return err
	}
	return c.reload(ctx)
}

// locateMedication prefers the shown position when it still holds the same
// record, else the first record with the same content.
func locateMedication(meds []types.Medication, key uuid.UUID, shownAt int) int {
	if shownAt >= 0 && shownAt < len(meds) && meds[shownAt].Key() == key {
		return shownAt
	}
	for i, m := range meds {
		if m.Key() == key {
			return i
		}
	}
	return -1
}

func (c *ProfileController) Logout() error {
	return logout(c.store, c.ui)
}

// reject shows a failed write. An empty prefix shows offline as the message
// for every failure.
func (c *ProfileController) reject(err error, prefix, offline string) {
	if c.auth.handle(err) {
		return
	}
	logging.AppLogger.Warn("profile update failed", zap.Error(err))
	text := offline
	if prefix != "" && !api.IsTransport(err) {
		text = prefix + api.DetailOf(err, err.Error())
	}
	c.ui.Notify(Notice{Level: LevelError, Text: text})
}
