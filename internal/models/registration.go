package models

import "time"

// RegistrationType distinguishes individual sign-ups from family units.
type RegistrationType string

const (
	RegistrationTypeIndividual RegistrationType = "INDIVIDUAL"
	RegistrationTypeFamily     RegistrationType = "FAMILY"
)

// AgeCategory buckets attendees for event planning.
type AgeCategory string

const (
	AgeCategoryAdult AgeCategory = "ADULT"
	AgeCategoryYouth AgeCategory = "YOUTH"
	AgeCategoryChild AgeCategory = "CHILD"
)

// RegistrationSource records who entered the registration. It has no
// behavioural effect.
type RegistrationSource string

const (
	RegistrationSourceSelf  RegistrationSource = "SELF"
	RegistrationSourceAdmin RegistrationSource = "ADMIN"
)

// RegistrationStatus is the payment completeness label of a registration.
type RegistrationStatus string

const (
	StatusPending     RegistrationStatus = "PENDING"
	StatusPartialPaid RegistrationStatus = "PARTIAL_PAID"
	StatusFullyPaid   RegistrationStatus = "FULLY_PAID"
	StatusCancelled   RegistrationStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartialPaid, StatusFullyPaid, StatusCancelled:
		return true
	}
	return false
}

// Registration is one registrant unit: a person or a family represented by one record.
type Registration struct {
	ID                 string             `db:"id" json:"id"`
	Type               RegistrationType   `db:"type" json:"type"`
	RepresentativeName string             `db:"representative_name" json:"representative_name"`
	PhoneNumber        string             `db:"phone_number" json:"phone_number"`
	AgeCategory        AgeCategory        `db:"age_category" json:"age_category"`
	TotalFee           int64              `db:"total_fee" json:"total_fee"`
	TotalPaid          int64              `db:"total_paid" json:"total_paid"`
	Status             RegistrationStatus `db:"status" json:"status"`
	Source             RegistrationSource `db:"registration_source" json:"registration_source"`
	CancelledAt        *time.Time         `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// Cancelled reports whether the registration reached the terminal cancelled state.
func (r Registration) Cancelled() bool {
	return r.CancelledAt != nil || r.Status == StatusCancelled
}

// Remaining returns the outstanding balance, never below zero.
func (r Registration) Remaining() int64 {
	if r.TotalPaid >= r.TotalFee {
		return 0
	}
	return r.TotalFee - r.TotalPaid
}

// FamilyMember is an additional attendee owned by a FAMILY registration.
type FamilyMember struct {
	ID             string      `db:"id" json:"id"`
	RegistrationID string      `db:"registration_id" json:"registration_id"`
	MemberName     string      `db:"member_name" json:"member_name"`
	AgeCategory    AgeCategory `db:"age_category" json:"age_category"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// RegistrationDetail bundles a registration with its family members.
type RegistrationDetail struct {
	Registration
	FamilyMembers []FamilyMember `json:"family_members"`
}

// RegistrationFilter captures admin list criteria.
type RegistrationFilter struct {
	Search    string
	Status    RegistrationStatus
	Type      RegistrationType
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RegistrationTotals aggregates money figures across non-cancelled registrations.
type RegistrationTotals struct {
	TotalRegistrants int   `db:"total_registrants" json:"total_registrants"`
	TotalExpected    int64 `db:"total_expected" json:"total_expected"`
	TotalCollected   int64 `db:"total_collected" json:"total_collected"`
}

// StatusCount is the number of registrations per status.
type StatusCount struct {
	Status RegistrationStatus `db:"status" json:"status"`
	Count  int                `db:"count" json:"count"`
}
