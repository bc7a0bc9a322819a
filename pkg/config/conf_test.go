package config

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mchmarny/riskpulse/pkg/data"
	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/mchmarny/riskpulse/pkg/model"
	"github.com/mchmarny/riskpulse/pkg/policy"
	"github.com/mchmarny/riskpulse/pkg/risk"
	"github.com/mchmarny/riskpulse/pkg/stress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	dir := t.TempDir()

	c1, err := ReadOrCreate(dir)
	require.NoError(t, err)
	require.NotNil(t, c1)
	assert.Equal(t, Default(dir), c1)

	c1.Model.Family = string(model.FamilyRandomForest)
	c1.Risk.LGD = 0.6
	c1.Risk.Stress = string(stress.Severe)
	c1.Output.Format = FormatYAML

	require.NoError(t, Save(dir, c1))

	c2, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestDefault(t *testing.T) {
	c := Default("/tmp/x")
	require.NoError(t, c.Validate())

	assert.Equal(t, risk.DefaultOptions(), c.Options())
	assert.Equal(t, data.DriverSQLite, c.Store.Driver)
	assert.Equal(t, filepath.Join("/tmp/x", data.DataFileName), c.Store.DSN)
	assert.Equal(t, "₹", c.Output.Currency)
	assert.Equal(t, policy.Default(), c.Policy)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("risk:\n  lgd: 0.3\n"), 0600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, c.Risk.LGD)
	assert.Equal(t, string(model.FamilyLogistic), c.Model.Family)
	assert.Equal(t, model.DefaultTestFraction, c.Model.TestFraction)
	assert.Equal(t, SyntheticRecordsDefault, c.Data.SyntheticRecords)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"lgd", "risk:\n  lgd: 1.5\n"},
		{"family", "model:\n  family: svm\n"},
		{"driver", "store:\n  driver: mysql\n"},
		{"format", "output:\n  format: xml\n"},
		{"synthetic", "data:\n  synthetic_records: 0\n"},
		{"yaml", "risk: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": FormatJSON, "JSON": FormatJSON, "yaml": FormatYAML, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestDataset(t *testing.T) {
	c := Default(t.TempDir())
	c.Data.SyntheticRecords = 25

	ds, err := c.Dataset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, ds.Len())

	path := filepath.Join(t.TempDir(), "loans.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, loan.WriteCSV(f, ds))
	require.NoError(t, f.Close())

	c.Data.Path = path
	loaded, err := c.Dataset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ds.Len(), loaded.Len())

	var csv bytes.Buffer
	require.NoError(t, loan.WriteCSV(&csv, ds))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loans.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(csv.Bytes())
	}))
	defer srv.Close()

	c.Data.Path = srv.URL + "/loans.csv"
	remote, err := c.Dataset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ds.Len(), remote.Len())

	c.Data.Path = srv.URL + "/missing.csv"
	_, err = c.Dataset(context.Background())
	assert.Error(t, err)
}

func TestSave_Errors(t *testing.T) {
	assert.Error(t, Save("", Default("")))
	assert.Error(t, Save(t.TempDir(), nil))
	_, err := ReadOrCreate("")
	assert.Error(t, err)
}

func TestGetOrCreateHomeDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir, created, err := GetOrCreateHomeDir("riskpulse-test")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ".riskpulse-test", filepath.Base(dir))

	_, created, err = GetOrCreateHomeDir("riskpulse-test")
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = GetOrCreateHomeDir("")
	assert.Error(t, err)
}
