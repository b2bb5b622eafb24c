package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVRenderOrdersColumnsByHeader(t *testing.T) {
	data := Dataset{
		Headers: []string{"Kind", "Title", "Size Bytes"},
		Rows: []map[string]string{
			{"Title": "Cardiac cycle", "Kind": "note", "Size Bytes": "2048"},
			{"Title": "Valve surgery", "Kind": "video", "Size Bytes": "1048576"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"Kind", "Title", "Size Bytes"}, records[0])
	require.Equal(t, []string{"note", "Cardiac cycle", "2048"}, records[1])
	require.Equal(t, []string{"video", "Valve surgery", "1048576"}, records[2])
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFRenderProducesDocument(t *testing.T) {
	data := Dataset{
		Headers: []string{"Kind", "Title"},
		Rows:    []map[string]string{{"Kind": "note", "Title": "Cardiac cycle"}},
	}

	out, err := NewPDFExporter().Render(data, "Department Content Summary")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
