package dataset

import (
	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
)

// Kind identifies one of the three source tables.
type Kind string

const (
	Enrolment   Kind = "enrolment"
	Demographic Kind = "demographic"
	Biometric   Kind = "biometric"
)

// MaxMeasures bounds the measure columns of any schema so a Record can hold
// them in a fixed array.
const MaxMeasures = 4

// Unknown is the sentinel for a missing string cell.
const Unknown = "Unknown"

// Identifier columns shared by every table.
const (
	ColDate        = "date"
	ColState       = "state"
	ColDistrict    = "district"
	ColSubDistrict = "sub_district"
	ColPincode     = "pincode"
)

// Schema is the explicit column layout of one table.
type Schema struct {
	Kind     Kind
	Folder   string
	Measures []string
	Total    string
}

var schemas = map[Kind]Schema{
	Enrolment: {
		Kind:     Enrolment,
		Folder:   "api_data_aadhar_enrolment",
		Measures: []string{"age_0_5", "age_5_17", "age_18_greater"},
		Total:    "total_enrolments",
	},
	Demographic: {
		Kind:     Demographic,
		Folder:   "api_data_aadhar_demographic",
		Measures: []string{"demo_age_5_17", "demo_age_17_"},
		Total:    "total_demo_updates",
	},
	Biometric: {
		Kind:     Biometric,
		Folder:   "api_data_aadhar_biometric",
		Measures: []string{"bio_age_5_17", "bio_age_17_"},
		Total:    "total_bio_updates",
	},
}

// Kinds lists the tables in a stable order.
func Kinds() []Kind { return []Kind{Enrolment, Demographic, Biometric} }

// SchemaFor returns the schema of k. The Measures slice is a copy.
func SchemaFor(k Kind) (Schema, error) {
	s, ok := schemas[k]
	if !ok {
		return Schema{}, ErrUnknownKind(string(k))
	}
	s.Measures = append([]string(nil), s.Measures...)
	return s, nil
}

// ParseKind accepts the table name case-sensitively as written in Kinds.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := schemas[k]; !ok {
		return "", ErrUnknownKind(s)
	}
	return k, nil
}

// ErrUnknownKind is an invalid-parameter error naming the accepted kinds.
func ErrUnknownKind(got string) error {
	valid := make([]string, 0, len(schemas))
	for _, k := range Kinds() {
		valid = append(valid, string(k))
	}
	return analysis.InvalidParameter("dataset", got, valid)
}

// MeasureIndex returns the position of name in the schema, or -1.
func (s Schema) MeasureIndex(name string) int {
	for i, m := range s.Measures {
		if m == name {
			return i
		}
	}
	return -1
}
