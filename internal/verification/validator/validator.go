// Package validator cross-checks parsed document fields against the
// holder's profile and decides whether a verification may proceed.
package validator

import (
	"strings"

	"talanta/internal/verification/models"
)

// matchConfidence is the score assigned when the profile name and the
// document name agree. There is no partial scoring: the match is a
// substring test, so confidence is either this value or zero.
const matchConfidence = 0.85

const (
	issueNoIDNumber   = "ID number not found"
	issueNoSerial     = "Certificate serial number not found"
	issueNameMismatch = "Name mismatch between ID and user profile"
)

// Validate inspects the parsed fields for the given document type. For a
// national ID the ID number is mandatory and the document name is compared
// against the profile name; a mismatch is recorded but does not block.
// For credential documents the serial number is mandatory.
func Validate(docType models.DocumentType, idFields models.IDFields, certFields models.CertificateFields, profileName string) models.ValidationResult {
	var res models.ValidationResult

	switch docType {
	case models.DocumentNationalID:
		if idFields.IDNumber == "" {
			res.Issues = append(res.Issues, issueNoIDNumber)
			res.Blocking = append(res.Blocking, issueNoIDNumber)
		}
		res.NameMatch = namesMatch(idFields.FullName, profileName)
		if res.NameMatch {
			res.Confidence = matchConfidence
		} else if strings.TrimSpace(profileName) != "" {
			// No name on file yet means nothing to mismatch against; the
			// document name is adopted instead.
			res.Issues = append(res.Issues, issueNameMismatch)
		}
	default:
		if certFields.Serial == "" {
			res.Issues = append(res.Issues, issueNoSerial)
			res.Blocking = append(res.Blocking, issueNoSerial)
		}
	}

	return res
}

// namesMatch compares case-insensitively and accepts a substring hit in
// either direction, so "John Mwangi" matches "JOHN MWANGI KARIUKI" and
// vice versa. Two empty names never match.
func namesMatch(docName, profileName string) bool {
	a := strings.ToLower(strings.TrimSpace(docName))
	b := strings.ToLower(strings.TrimSpace(profileName))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
