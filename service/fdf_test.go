package service

import (
	"strings"
	"testing"

	"github.com/acroforms/fillserver/model"
	"github.com/stretchr/testify/assert"
)

func TestMarshalFDF(t *testing.T) {
	data := string(MarshalFDF(model.FillValues{
		"Name":    "O'Brien (Station 3)",
		"Remarks": "line one\nline two",
		"Path":    `C:\reports`,
	}))

	assert.True(t, strings.HasPrefix(data, "%FDF-1.2\n"))
	assert.True(t, strings.HasSuffix(data, "%%EOF\n"))

	// Syntactically significant characters must be escaped
	assert.Contains(t, data, `/V (O'Brien \(Station 3\))`)
	assert.Contains(t, data, `/V (line one\nline two)`)
	assert.Contains(t, data, `/V (C:\\reports)`)
}

func TestMarshalFDFDeterministic(t *testing.T) {
	values := model.FillValues{"b": "2", "a": "1", "c": "3"}

	first := string(MarshalFDF(values))
	second := string(MarshalFDF(values))
	assert.Equal(t, first, second)

	// Sorted field order
	assert.Less(t, strings.Index(first, "/T (a)"), strings.Index(first, "/T (b)"))
	assert.Less(t, strings.Index(first, "/T (b)"), strings.Index(first, "/T (c)"))
}

func TestMarshalFDFEmpty(t *testing.T) {
	data := string(MarshalFDF(model.FillValues{}))
	assert.Contains(t, data, "/Fields [\n] >>")
}

func TestMarshalFDFEscapesFieldNames(t *testing.T) {
	data := string(MarshalFDF(model.FillValues{"weird (name)": "v"}))
	assert.Contains(t, data, `/T (weird \(name\))`)
}
