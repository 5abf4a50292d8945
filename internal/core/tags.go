package core

import (
	"regexp"
	"strings"
)

// ProjectTag is the closed vocabulary of project tags.
type ProjectTag string

const (
	TagAsces    ProjectTag = "#Asces"
	TagLabCasa  ProjectTag = "#LabCasa"
	TagPersonal ProjectTag = "#Personal"
)

var tagPattern = regexp.MustCompile(`(?i)(#Asces|#LabCasa|#Personal)`)

var canonicalTags = map[string]ProjectTag{
	"#asces":    TagAsces,
	"#labcasa":  TagLabCasa,
	"#personal": TagPersonal,
}

// NormalizeTag maps any casing of a known tag token to its canonical form.
func NormalizeTag(s string) (ProjectTag, bool) {
	tag, ok := canonicalTags[strings.ToLower(strings.TrimSpace(s))]
	return tag, ok
}

// ExtractTag returns the first known tag token found in text, normalized to
// canonical casing. The same scan backs both the heuristic parser and the
// classifier's post-processing re-scan.
func ExtractTag(text string) (ProjectTag, bool) {
	m := tagPattern.FindString(text)
	if m == "" {
		return "", false
	}
	return NormalizeTag(m)
}

// UpdatableField is the closed set of transaction fields the update and
// correction flows may touch.
type UpdatableField string

const (
	FieldAmount      UpdatableField = "amount"
	FieldDescription UpdatableField = "description"
	FieldCategory    UpdatableField = "category"
	FieldDate        UpdatableField = "date"
)

// fieldAliases maps user-level field names, including the Spanish synonyms
// the classifier tends to emit, to canonical fields.
var fieldAliases = map[string]UpdatableField{
	"amount":      FieldAmount,
	"monto":       FieldAmount,
	"precio":      FieldAmount,
	"valor":       FieldAmount,
	"description": FieldDescription,
	"descripción": FieldDescription,
	"descripcion": FieldDescription,
	"concepto":    FieldDescription,
	"nombre":      FieldDescription,
	"category":    FieldCategory,
	"categoría":   FieldCategory,
	"categoria":   FieldCategory,
	"rubro":       FieldCategory,
	"date":        FieldDate,
	"fecha":       FieldDate,
	"día":         FieldDate,
	"dia":         FieldDate,
}

// NormalizeField resolves a correction-field alias to its canonical field.
func NormalizeField(s string) (UpdatableField, bool) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}
