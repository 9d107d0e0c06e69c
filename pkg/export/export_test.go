package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = Dataset{
	Title:   "Attendance",
	Headers: []string{"Subject", "Attendance %"},
	Rows: []map[string]string{
		{"Subject": "Physics", "Attendance %": "90.00"},
		{"Subject": "Maths, Advanced"},
	},
	Footer: []string{"Overall: 75.00%"},
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sample)
	require.NoError(t, err)
	assert.Equal(t, "Subject,Attendance %\nPhysics,90.00\n\"Maths, Advanced\",\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sample)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}
