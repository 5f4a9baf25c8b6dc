// Package models defines the verification pipeline's domain types: the
// verification record, the trust-bearing view of a user, OCR fragments and
// the parsed field sets.
package models

import (
	"time"

	id "talanta/pkg/domain"
)

// DocumentType enumerates accepted verification documents.
type DocumentType string

const (
	DocumentNationalID  DocumentType = "NATIONAL_ID"
	DocumentCertificate DocumentType = "CERTIFICATE"
	DocumentDiploma     DocumentType = "DIPLOMA"
	DocumentLicense     DocumentType = "LICENSE"
	DocumentTranscript  DocumentType = "TRANSCRIPT"
)

// ParseDocumentType validates a client-supplied document type.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch DocumentType(s) {
	case DocumentNationalID, DocumentCertificate, DocumentDiploma, DocumentLicense, DocumentTranscript:
		return DocumentType(s), true
	}
	return "", false
}

// IsCredential reports whether the document carries a skill credential
// (everything except the national ID).
func (t DocumentType) IsCredential() bool {
	return t != DocumentNationalID
}

// Status enumerates the verification workflow states. PENDING and PROCESSING
// are transient; VERIFIED and REJECTED are terminal.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusVerified   Status = "VERIFIED"
	StatusRejected   Status = "REJECTED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// Point is one corner of a fragment bounding box in image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Fragment is one OCR text fragment with its confidence and position.
type Fragment struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	BBox       [4]Point `json:"bbox"`
}

// VerificationRecord is the durable unit of work for one uploaded document.
// Created in PENDING by the upload boundary, mutated exclusively by the
// orchestrator, never deleted.
type VerificationRecord struct {
	ID     id.VerificationID
	UserID id.UserID

	DocumentType DocumentType
	StorageKey   string
	FileSize     int64

	OCRData              []Fragment
	ExtractedName        string
	ExtractedSerial      string
	ExtractedSkill       string
	ExtractedInstitution string

	Status          Status
	RejectionReason string

	// TrustScoreDelta is nonzero only when Status is VERIFIED.
	TrustScoreDelta int

	VerifiedAt *time.Time
	VerifiedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is the trust-bearing view of a citizen consumed by this pipeline.
// The identity subsystem owns the full record; the pipeline leases only the
// fields below for the duration of one job commit.
type User struct {
	ID         id.UserID
	FullName   string
	TrustScore int
	IsVerified bool
}

// IDFields are the fields parsed from a national ID document.
type IDFields struct {
	IDNumber    string
	FullName    string
	DateOfBirth string
}

// CertificateFields are the fields parsed from a credential document.
type CertificateFields struct {
	CertType    string
	Serial      string
	Skill       string
	Institution string
}

// ValidationResult is the cross-validator output consumed by the orchestrator.
type ValidationResult struct {
	NameMatch  bool
	Confidence float64
	// Issues lists everything the validator found wrong, blocking or not.
	Issues []string
	// Blocking lists the subset of issues that force rejection.
	Blocking []string
}

// Valid reports whether the record may be verified: no blocking issues.
func (v ValidationResult) Valid() bool {
	return len(v.Blocking) == 0
}
