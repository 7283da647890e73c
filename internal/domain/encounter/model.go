package encounter

import (
	"time"

	"github.com/google/uuid"
)

// Valid encounter types.
const (
	TypeInitialAssessment = "INITIAL_ASSESSMENT"
	TypeFollowUp          = "FOLLOW_UP"
	TypeTreatmentSession  = "TREATMENT_SESSION"
)

var validTypes = map[string]bool{
	TypeInitialAssessment: true,
	TypeFollowUp:          true,
	TypeTreatmentSession:  true,
}

// ValidTypes returns the accepted encounter type values for error messages.
func ValidTypes() []string {
	return []string{TypeInitialAssessment, TypeFollowUp, TypeTreatmentSession}
}

// ClinicalData holds the structured free-text portion of an encounter.
// These fields are protected: they never appear unredacted in logs or audit
// records.
type ClinicalData struct {
	Notes        string `json:"notes,omitempty"`
	Observations string `json:"observations,omitempty"`
	Assessment   string `json:"assessment,omitempty"`
}

// Encounter maps to the encounter table. Ownership is the providerId: the
// provider that created an encounter is the only one allowed to read it.
type Encounter struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	PatientID     uuid.UUID    `db:"patient_id" json:"patientId"`
	ProviderID    uuid.UUID    `db:"provider_id" json:"providerId"`
	EncounterDate time.Time    `db:"encounter_date" json:"encounterDate"`
	EncounterType string       `db:"encounter_type" json:"encounterType"`
	ClinicalData  ClinicalData `db:"clinical_data" json:"clinicalData"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updatedAt"`
	CreatedBy     uuid.UUID    `db:"created_by" json:"createdBy"`
}

// Snapshot is the cache representation of an encounter: a plain data copy,
// never the live entity. Readers reconstruct the entity explicitly so a
// cached shape drifting from the live type is caught at one seam.
type Snapshot struct {
	ID            uuid.UUID    `json:"id"`
	PatientID     uuid.UUID    `json:"patientId"`
	ProviderID    uuid.UUID    `json:"providerId"`
	EncounterDate time.Time    `json:"encounterDate"`
	EncounterType string       `json:"encounterType"`
	ClinicalData  ClinicalData `json:"clinicalData"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	CreatedBy     uuid.UUID    `json:"createdBy"`
}

// ToSnapshot converts the entity into its cacheable form.
func (e *Encounter) ToSnapshot() Snapshot {
	return Snapshot{
		ID:            e.ID,
		PatientID:     e.PatientID,
		ProviderID:    e.ProviderID,
		EncounterDate: e.EncounterDate,
		EncounterType: e.EncounterType,
		ClinicalData:  e.ClinicalData,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		CreatedBy:     e.CreatedBy,
	}
}

// Entity reconstructs the domain entity from a cached snapshot.
func (s Snapshot) Entity() *Encounter {
	return &Encounter{
		ID:            s.ID,
		PatientID:     s.PatientID,
		ProviderID:    s.ProviderID,
		EncounterDate: s.EncounterDate,
		EncounterType: s.EncounterType,
		ClinicalData:  s.ClinicalData,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		CreatedBy:     s.CreatedBy,
	}
}

// CreateInput carries a validated creation request into the service.
type CreateInput struct {
	PatientID     uuid.UUID
	EncounterDate time.Time
	EncounterType string
	ClinicalData  ClinicalData
}

// ListFilters selects and paginates a provider's encounters. ProviderID is
// always forced to the caller by the service, regardless of what the
// transport layer parsed.
type ListFilters struct {
	PatientID     string
	ProviderID    string
	StartDate     *time.Time
	EndDate       *time.Time
	EncounterType string
	Page          int
	Limit         int
}

// ListMeta describes one page of list results.
type ListMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// ListResult is the response envelope for a filtered listing. It is also the
// shape cached under the list key, with snapshots reconstructed on read.
type ListResult struct {
	Encounters []*Encounter `json:"encounters"`
	Meta       ListMeta     `json:"meta"`
}

// listSnapshot is the cached form of a ListResult.
type listSnapshot struct {
	Encounters []Snapshot `json:"encounters"`
	Meta       ListMeta   `json:"meta"`
}

// IsValidType reports whether t names a known encounter type.
func IsValidType(t string) bool {
	return validTypes[t]
}
