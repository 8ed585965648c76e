package model

// FieldSet is the introspected field list of one AcroForm template
type FieldSet struct {
	Template string   `json:"template"`
	Fields   []string `json:"fields"`
}

// FillValues maps AcroForm field names to the values submitted for them
type FillValues map[string]string

// Content type and disposition for filled output
const (
	ContentTypePDF = "application/pdf"
)
