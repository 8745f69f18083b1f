package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Attendance Summary",
		Headers: []string{"subject", "present", "total", "percentage"},
		Rows: []map[string]string{
			{"subject": "Mathematics", "present": "3", "total": "4", "percentage": "75.00"},
			{"subject": "Physics, Lab", "present": "0", "total": "0", "percentage": "0.00"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "subject,present,total,percentage", lines[0])
	assert.Equal(t, `"Physics, Lab",0,0,0.00`, lines[2])
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Report")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Mathematics", rows[1][0])
	assert.Equal(t, "75", rows[1][3])
}

func TestRenderRequiresHeaders(t *testing.T) {
	for _, format := range []string{FormatCSV, FormatPDF, FormatXLSX} {
		r, err := ForFormat(format)
		require.NoError(t, err)
		_, err = r.Render(Dataset{})
		assert.Error(t, err, format)
	}
	_, err := ForFormat("docx")
	assert.Error(t, err)
}
