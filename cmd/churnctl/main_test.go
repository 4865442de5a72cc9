package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	body := `{"CreditScore":650,"Geography":"France","Gender":"Female","Age":35,"Tenure":5,
"Balance":50000.0,"NumOfProducts":2,"HasCrCard":1,"IsActiveMember":1}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	in, err := readInput(path)
	require.NoError(t, err)
	require.NotNil(t, in.Age)
	assert.Equal(t, 35, *in.Age)
	assert.Equal(t, "France", *in.Geography)
	// left for the server to reject
	assert.Nil(t, in.EstimatedSalary)
}

func TestReadInput_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := readInput(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "open record")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"Age":"old"}`), 0o644))
	_, err = readInput(bad)
	assert.ErrorContains(t, err, "decode record")
}
