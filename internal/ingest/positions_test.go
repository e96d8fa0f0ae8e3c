package ingest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flower-explorer/vistool/internal/datastore"
	"github.com/flower-explorer/vistool/internal/errors"
)

func TestParsePositions(t *testing.T) {
	t.Parallel()
	input := camPosHeader +
		"IMG_001.JPG,10.0,20.0,5.0,90.0,0.1,0.2\n" +
		"\n" +
		"IMG_002.tif.JPG, 11.5 , 21.25,6,-45,0,0\n" +
		"DSC002.JPG,,,,,,\n"

	table, err := ParsePositions(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []datastore.Position{
		{Label: "IMG_001", Easting: 10, Northing: 20, Altitude: 5, Yaw: 90},
		{Label: "IMG_002", Easting: 11.5, Northing: 21.25, Altitude: 6, Yaw: -45},
	}, table.Positions)
	assert.Equal(t, []string{"DSC002"}, table.Unaligned)
	assert.Equal(t, 3, table.Rows())
}

func TestParsePositions_UnalignedRows(t *testing.T) {
	t.Parallel()
	input := camPosHeader +
		"A.JPG,1,2\n" +
		"B.JPG\n" +
		"C.JPG,1,2,3,,0,0\n" +
		"D.JPG,1,2,3,4\n"

	table, err := ParsePositions(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, table.Unaligned)
	require.Len(t, table.Positions, 1)
	assert.Equal(t, datastore.Position{Label: "D", Easting: 1, Northing: 2, Altitude: 3, Yaw: 4}, table.Positions[0])
}

func TestParsePositions_ColumnOrderFromHeader(t *testing.T) {
	t.Parallel()
	input := "banner\nYaw_est,Z_est,#Label,Y_est,X_est\n1,2,A.JPG,4,5\n"

	table, err := ParsePositions(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, table.Positions, 1)
	assert.Equal(t, datastore.Position{Label: "A", Easting: 5, Northing: 4, Altitude: 2, Yaw: 1}, table.Positions[0])
}

func TestParsePositions_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "empty position file"},
		{"banner only", "# Cameras\n", "no header"},
		{"missing column", "banner\n#Label,X_est,Y_est,Z_est\nA,1,2,3\n", "Yaw_est"},
		{"bad number", camPosHeader + "A.JPG,1,x,3,4,0,0\n", "line 3"},
		{"bad number beside empty cell", camPosHeader + "A.JPG,,x,3,4,0,0\n", "Y_est"},
		{"empty label", camPosHeader + ",1,2,3,4,0,0\n", "line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParsePositions(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFindPositionFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"CamPos_b.txt":     "",
		"CamPos_a.txt":     "",
		"CamPos_dir/x.txt": "",
		"other.txt":        "",
	})

	path, err := FindPositionFile(dir, "CamPos*.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "CamPos_a.txt"), path)

	_, err = FindPositionFile(t.TempDir(), "CamPos*.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingPositionFile)

	_, err = FindPositionFile(filepath.Join(dir, "absent"), "CamPos*.txt")
	assert.ErrorIs(t, err, errors.ErrMissingPositionFile)
}

func TestReadPositionFile_ParsingCategory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"CamPos.txt": "banner\n#Label\nA\n"})

	_, err := ReadPositionFile(filepath.Join(dir, "CamPos.txt"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}
