package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Student", "Risk Level"},
		Rows: []map[string]string{
			{"Student": "Student One", "Risk Level": "high"},
			{"Student": "Student, Two", "Risk Level": "low"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Student,Risk Level\nStudent One,high\n\"Student, Two\",low\n", string(payload))
}

func TestCSVRenderMissingColumnsAreBlank(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Student", "Grade"},
		Rows:    []map[string]string{{"Student": "Student One"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Student,Grade\nStudent One,\n", string(payload))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestPDFRenderProducesDocument(t *testing.T) {
	exporter := NewPDFExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Student", "Risk Level"},
		Rows:    []map[string]string{{"Student": "Student One", "Risk Level": "high"}},
	}, "Risk Report - Mathematics", []string{"Students: 1", "High risk: 1"})
	require.NoError(t, err)
	require.NotEmpty(t, payload)
	assert.Equal(t, "%PDF", string(payload[:4]))
}
