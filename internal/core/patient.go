package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxAddressLength  = 50
	defaultNationalID = "-"
	birthDateLayout   = "02/01/2006"
)

type Sex string

const (
	SexMale   Sex = "L"
	SexFemale Sex = "P"
)

func (s Sex) Code() string {
	if s == SexFemale {
		return string(SexFemale)
	}
	return string(SexMale)
}

var femaleTokens = map[string]bool{
	"P":         true,
	"PEREMPUAN": true,
	"WANITA":    true,
	"F":         true,
	"FEMALE":    true,
	"2":         true,
}

// ParseSex maps free-text sex values to a code; anything unrecognized is male.
func ParseSex(raw string) Sex {
	if femaleTokens[strings.ToUpper(strings.TrimSpace(raw))] {
		return SexFemale
	}
	return SexMale
}

type PatientRecord struct {
	MRN          string
	Name         string
	Sex          Sex
	BirthDate    time.Time
	BirthDateRaw string
	NationalID   string
	Address      string
}

type patientField int

const (
	fieldMRN patientField = iota
	fieldName
	fieldSex
	fieldBirthDate
	fieldNationalID
	fieldAddress
)

// patientFieldAliases lists accepted source keys per field in priority order.
// Dotted keys address nested objects.
var patientFieldAliases = map[patientField][]string{
	fieldMRN:        {"NORM", "mr.noMR"},
	fieldName:       {"NAMA_LENGKAP", "nama"},
	fieldSex:        {"JENIS_KELAMIN", "sex"},
	fieldBirthDate:  {"TANGGAL_LAHIR", "tglLahir"},
	fieldNationalID: {"NIK", "nik"},
	fieldAddress:    {"ALAMAT", "alamat"},
}

var birthDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006",
	"02/01/2006",
}

// NormalizePatient builds a PatientRecord from a loosely shaped participant
// object. Raw keys do not survive past this point.
func NormalizePatient(raw map[string]any, loc *time.Location) PatientRecord {
	if loc == nil {
		loc = time.Local
	}

	p := PatientRecord{
		MRN:          lookupField(raw, fieldMRN),
		Name:         lookupField(raw, fieldName),
		Sex:          ParseSex(lookupField(raw, fieldSex)),
		BirthDateRaw: lookupField(raw, fieldBirthDate),
		NationalID:   lookupField(raw, fieldNationalID),
		Address:      lookupField(raw, fieldAddress),
	}
	if p.NationalID == "" {
		p.NationalID = defaultNationalID
	}
	p.BirthDate, _ = ParseBirthDate(p.BirthDateRaw, loc)
	return p
}

func ParseBirthDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty birth date")
	}
	for _, layout := range birthDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized birth date %q", raw)
}

// FormattedBirthDate returns dd/mm/yyyy, or the raw input when it did not parse.
func (p PatientRecord) FormattedBirthDate() string {
	if !p.BirthDate.IsZero() {
		return p.BirthDate.Format(birthDateLayout)
	}
	if s := strings.TrimSpace(p.BirthDateRaw); s != "" {
		return s
	}
	return "-"
}

func (p PatientRecord) DisplayName() string {
	return strings.ToUpper(p.Name)
}

func (p PatientRecord) TruncatedAddress() string {
	return TruncateRunes(p.Address, MaxAddressLength)
}

func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func lookupField(raw map[string]any, field patientField) string {
	for _, key := range patientFieldAliases[field] {
		v, ok := lookupPath(raw, key)
		if !ok {
			continue
		}
		if s := scalarString(v); s != "" {
			return s
		}
	}
	return ""
}

func lookupPath(raw map[string]any, key string) (any, bool) {
	var cur any = raw
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}
