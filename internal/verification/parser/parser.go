// Package parser turns raw OCR fragments into structured document fields.
// Rules are document-type specific and best-effort: a field the rules cannot
// find is left empty and becomes a validation issue downstream, never a
// parser error.
package parser

import (
	"regexp"
	"strings"

	"talanta/internal/verification/models"
)

var (
	idNumberRe = regexp.MustCompile(`\b(\d{8})\b`)
	capsNameRe = regexp.MustCompile(`\b([A-Z][A-Z ]+[A-Z])\b`)
	dobRe      = regexp.MustCompile(`\b(\d{2}[/-]\d{2}[/-]\d{4})\b`)

	// Serial rules are tried in order; the first match wins.
	serialRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:SERIAL|SER|NO)[:\s]+([A-Z0-9/-]+)`),
		regexp.MustCompile(`\b([A-Z]{2,4}/\d{2,4}/\d{4})\b`), // e.g. KNEC/123/2023
		regexp.MustCompile(`\b(CERT-\d+)\b`),
	}

	skillRe = regexp.MustCompile(`(?:CERTIFICATE|DIPLOMA)\s+(?:IN|OF)\s+([A-Z ]+)`)
)

// certTypes is the fixed vocabulary of credential headings, in match order.
var certTypes = []string{"CERTIFICATE", "DIPLOMA", "LICENSE", "TRANSCRIPT"}

// institutionKeywords mark a fragment as the issuing institution line.
var institutionKeywords = []string{"INSTITUTE", "COLLEGE", "UNIVERSITY", "TVET", "POLYTECHNIC"}

// joinText concatenates fragment texts the way the rules expect them.
func joinText(fragments []models.Fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		parts = append(parts, f.Text)
	}
	return strings.Join(parts, " ")
}

// ParseNationalID extracts the ID number, the holder name and an optional
// date of birth from a national ID scan.
//
// The name heuristic relies on IDs printing the holder name in capitals: the
// longest run of uppercase letters and spaces is taken as the full name.
func ParseNationalID(fragments []models.Fragment) models.IDFields {
	text := joinText(fragments)
	var fields models.IDFields

	if m := idNumberRe.FindStringSubmatch(text); m != nil {
		fields.IDNumber = m[1]
	}

	longest := ""
	for _, m := range capsNameRe.FindAllStringSubmatch(text, -1) {
		if len(m[1]) > len(longest) {
			longest = m[1]
		}
	}
	fields.FullName = strings.TrimSpace(longest)

	if m := dobRe.FindStringSubmatch(text); m != nil {
		fields.DateOfBirth = m[1]
	}
	return fields
}

// ParseCertificate extracts the certificate type, serial number, skill name
// and issuing institution from a credential document.
func ParseCertificate(fragments []models.Fragment) models.CertificateFields {
	text := joinText(fragments)
	upper := strings.ToUpper(text)
	var fields models.CertificateFields

	for _, ct := range certTypes {
		if strings.Contains(upper, ct) {
			fields.CertType = ct
			break
		}
	}

	for _, re := range serialRes {
		if m := re.FindStringSubmatch(upper); m != nil {
			fields.Serial = m[1]
			break
		}
	}

	// Prefer a per-fragment match: OCR fragments are lines, and matching
	// within one line keeps the captured course name from swallowing the
	// text that follows it. Fall back to the concatenation for fragments
	// that split mid-sentence.
	for _, f := range fragments {
		if m := skillRe.FindStringSubmatch(strings.ToUpper(f.Text)); m != nil {
			fields.Skill = titleCase(strings.TrimSpace(m[1]))
			break
		}
	}
	if fields.Skill == "" {
		if m := skillRe.FindStringSubmatch(upper); m != nil {
			fields.Skill = titleCase(strings.TrimSpace(m[1]))
		}
	}

	// The institution is the first fragment mentioning an institution
	// keyword, not the concatenated text: institution names are printed on
	// their own line.
	for _, f := range fragments {
		fragUpper := strings.ToUpper(f.Text)
		for _, kw := range institutionKeywords {
			if strings.Contains(fragUpper, kw) {
				fields.Institution = strings.TrimSpace(f.Text)
				break
			}
		}
		if fields.Institution != "" {
			break
		}
	}
	return fields
}

// titleCase lowercases a shouted OCR token and capitalizes each word,
// turning "SOLAR INSTALLATION" into "Solar Installation".
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
