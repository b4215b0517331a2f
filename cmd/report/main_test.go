package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"attendancereport/internal/auth"
	"attendancereport/internal/config"
	"attendancereport/internal/exporter"
	"attendancereport/internal/summary"
)

func testConfig() config.App {
	return config.App{
		JWTIssuer:     "attendance-report",
		JWTSigningKey: "cli-test-key",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Policy:        summary.DefaultPolicy(),
	}
}

func TestSummarySampleCSV(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(), []string{"summary", "-sample", "-from", "2025-10-01", "-asof", "2025-11-14"}, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Name,Document,Presences,Lateness,Absences,Discount,LastMark", lines[0])
	assert.Equal(t, "Admin Uno,A001,3,1,27,137.0,2025-11-12 08:10:00", lines[1])
	assert.Equal(t, "Empleado Dos,E002,2,1,28,142.0,2025-11-11 16:50:00", lines[2])
	assert.Equal(t, "Nuevo Tres,N003,0,0,0,0.0,", lines[3])
}

func TestSummarySampleJSONByName(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(), []string{"summary", "-sample", "-asof", "2025-11-14", "-name", "dos", "-format", "json"}, &out)
	require.NoError(t, err)

	var body struct {
		Rows   []summary.Row   `json:"rows"`
		Totals summary.Summary `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "Empleado Dos", body.Rows[0].Name)
	assert.Equal(t, 142.0, body.Totals.Discount)
}

func TestSummarySampleXLSXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	err := run(context.Background(), testConfig(), []string{"summary", "-sample", "-asof", "2025-11-14", "-format", "xlsx", "-out", path}, &bytes.Buffer{})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(exporter.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestSummaryRejectsBadInput(t *testing.T) {
	cfg := testConfig()
	for _, args := range [][]string{
		{"summary", "-sample", "-from", "01/10/2025"},
		{"summary", "-sample", "-from", "2025-11-02", "-to", "2025-11-01"},
		{"summary", "-sample", "-asof", "tomorrow"},
		{"summary", "-sample", "-format", "pdf"},
		{"bogus"},
		{},
	} {
		assert.Error(t, run(context.Background(), cfg, args, &bytes.Buffer{}), "%v", args)
	}
}

func TestToken(t *testing.T) {
	cfg := testConfig()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, []string{"token", "-person", "4", "-role", "Empleado"}, &out))

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	claims, err := auth.Parse(body.AccessToken, cfg.JWTSigningKey, cfg.JWTIssuer)
	require.NoError(t, err)
	assert.Equal(t, 4, claims.PersonID)
	assert.Equal(t, "Empleado", claims.Role)

	assert.Error(t, run(context.Background(), cfg, []string{"token"}, &bytes.Buffer{}))
}
