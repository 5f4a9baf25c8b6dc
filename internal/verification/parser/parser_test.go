package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"talanta/internal/verification/models"
)

func frags(lines ...string) []models.Fragment {
	out := make([]models.Fragment, 0, len(lines))
	for _, l := range lines {
		out = append(out, models.Fragment{Text: l, Confidence: 0.9})
	}
	return out
}

func TestParseNationalID(t *testing.T) {
	t.Run("reference document", func(t *testing.T) {
		fields := ParseNationalID(frags("ID: 12345678 JOHN MWANGI KARIUKI"))
		assert.Equal(t, "12345678", fields.IDNumber)
		assert.Equal(t, "JOHN MWANGI KARIUKI", fields.FullName)
		assert.Empty(t, fields.DateOfBirth)
	})

	t.Run("first eight digit run wins", func(t *testing.T) {
		fields := ParseNationalID(frags("SERIAL 99887766", "ID NUMBER 12345678"))
		assert.Equal(t, "99887766", fields.IDNumber)
	})

	t.Run("seven digits are not an id number", func(t *testing.T) {
		fields := ParseNationalID(frags("ID: 1234567"))
		assert.Empty(t, fields.IDNumber)
	})

	t.Run("longest caps run is the name", func(t *testing.T) {
		fields := ParseNationalID(frags("JOHN DOE", "id no: 23456789", "JANE WANJIKU NJERI ACHIENG"))
		assert.Equal(t, "JANE WANJIKU NJERI ACHIENG", fields.FullName)
	})

	t.Run("date of birth both separators", func(t *testing.T) {
		assert.Equal(t, "01/02/1990", ParseNationalID(frags("DOB 01/02/1990")).DateOfBirth)
		assert.Equal(t, "01-02-1990", ParseNationalID(frags("DOB 01-02-1990")).DateOfBirth)
	})

	t.Run("empty input yields empty fields", func(t *testing.T) {
		fields := ParseNationalID(nil)
		assert.Equal(t, models.IDFields{}, fields)
	})
}

func TestParseCertificate_Serial(t *testing.T) {
	t.Run("label pattern wins", func(t *testing.T) {
		fields := ParseCertificate(frags("CERTIFICATE", "SERIAL: ABC-001/2023"))
		assert.Equal(t, "ABC-001/2023", fields.Serial)
	})

	t.Run("short label", func(t *testing.T) {
		fields := ParseCertificate(frags("DIPLOMA", "SER NO-7781"))
		assert.Equal(t, "NO-7781", fields.Serial)
	})

	t.Run("board year sequence shape", func(t *testing.T) {
		fields := ParseCertificate(frags("CERTIFICATE", "KNEC/123/2023"))
		assert.Equal(t, "KNEC/123/2023", fields.Serial)
	})

	t.Run("cert dash digits shape", func(t *testing.T) {
		fields := ParseCertificate(frags("CERTIFICATE", "CERT-445566"))
		assert.Equal(t, "CERT-445566", fields.Serial)
	})

	t.Run("no digits no serial", func(t *testing.T) {
		fields := ParseCertificate(frags("CERTIFICATE OF ATTENDANCE"))
		assert.Empty(t, fields.Serial)
	})
}

func TestParseCertificate_TypeSkillInstitution(t *testing.T) {
	fields := ParseCertificate(frags(
		"NAIROBI TECHNICAL INSTITUTE",
		"DIPLOMA IN SOLAR INSTALLATION",
		"Serial: KNEC/456/2024",
	))

	assert.Equal(t, "DIPLOMA", fields.CertType)
	assert.Equal(t, "Solar Installation", fields.Skill)
	assert.Equal(t, "NAIROBI TECHNICAL INSTITUTE", fields.Institution)
	assert.Equal(t, "KNEC/456/2024", fields.Serial)
}

func TestParseCertificate_InstitutionIsFirstMatchingFragment(t *testing.T) {
	fields := ParseCertificate(frags(
		"CERTIFICATE IN WELDING",
		"EASTLANDS COLLEGE OF TECHNOLOGY",
		"MOMBASA POLYTECHNIC",
	))
	assert.Equal(t, "EASTLANDS COLLEGE OF TECHNOLOGY", fields.Institution)
}

func TestParseCertificate_TypeVocabularyOrder(t *testing.T) {
	// The heading vocabulary is scanned in a fixed order; a document
	// mentioning several headings resolves to the earliest hit.
	fields := ParseCertificate(frags("DIPLOMA TRANSCRIPT"))
	assert.Equal(t, "DIPLOMA", fields.CertType)

	fields = ParseCertificate(frags("OFFICIAL TRANSCRIPT"))
	assert.Equal(t, "TRANSCRIPT", fields.CertType)
}

func TestParseCertificate_SkillTitleCased(t *testing.T) {
	fields := ParseCertificate(frags("CERTIFICATE OF AUTOMOTIVE REPAIR"))
	assert.Equal(t, "Automotive Repair", fields.Skill)
}

func TestParseCertificate_AllFieldsOptional(t *testing.T) {
	fields := ParseCertificate(frags("completely unrelated text"))
	assert.Equal(t, models.CertificateFields{}, fields)
}
