package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/dblayer/layer"
	"github.com/ridoystarlord/dblayer/validator"
)

func TestOutputText(t *testing.T) {
	result := &validator.ValidationResult{
		Errors: []validator.ValidationError{
			{Type: "column", Table: "post", Column: "title", Message: "max length must be positive"},
		},
		Warnings: []validator.ValidationError{
			{Type: "index", Table: "post", Index: "author", Message: "duplicates the foreign key index"},
		},
	}
	var buf bytes.Buffer
	outputText(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "1. [post].title: max length must be positive")
	assert.Contains(t, out, "1. [post] (index: author): duplicates the foreign key index")
	assert.Contains(t, out, "Errors: 1")
	assert.Contains(t, out, "Warnings: 1")
	assert.Contains(t, out, "Fix the errors above")
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputJSON(&buf, &validator.ValidationResult{Valid: true}))
	assert.Contains(t, buf.String(), `"valid": true`)
}

func TestWriteRecords(t *testing.T) {
	defer func(f string) { queryFormat = f }(queryFormat)

	tests := []struct {
		format string
		recs   []layer.Record
		want   string
	}{
		{"yaml", []layer.Record{{"id": 1, "name": "a"}}, "- id: 1\n  name: a\n"},
		{"yaml", nil, "[]\n"},
		{"json", []layer.Record{{"id": 1}}, "[\n  {\n    \"id\": 1\n  }\n]\n"},
		{"json", nil, "[]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			queryFormat = tt.format
			var buf bytes.Buffer
			require.NoError(t, writeRecords(&buf, tt.recs))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
