package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersCustodyRows(t *testing.T) {
	exporter := NewCSVExporter()

	content, err := exporter.Render(Dataset{
		Headers: []string{"Occurred At", "Action", "Actor", "Note"},
		Rows: []map[string]string{
			{"Occurred At": "2026-01-02T10:00:00Z", "Action": "UPLOADED", "Actor": "officer-7"},
			{"Occurred At": "2026-01-03T11:30:00Z", "Action": "DOWNLOADED", "Actor": "investigator-2", "Note": "case review"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Occurred At,Action,Actor,Note", lines[0])
	// Missing cells render empty without shifting columns.
	require.Equal(t, "2026-01-02T10:00:00Z,UPLOADED,officer-7,", lines[1])
	require.Equal(t, "2026-01-03T11:30:00Z,DOWNLOADED,investigator-2,case review", lines[2])
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}
