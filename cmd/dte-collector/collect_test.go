package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dte-collector/harvest"
)

func TestFinalSummaryAggregatesJobs(t *testing.T) {
	results := []jobResult{
		{
			docType:  harvest.DocInvoices,
			duration: 95 * time.Second,
			rc:       &harvest.RunContext{Succeeded: 12},
		},
		{
			docType:  harvest.DocExpenses,
			duration: 40 * time.Second,
			rc: &harvest.RunContext{
				Succeeded: 3,
				Failures:  []harvest.FailureRecord{{Identifier: "X"}},
			},
			err: errors.New("portal timeout"),
		},
	}

	out := finalSummary(results)
	require.Contains(t, out, "RESUMEN FINAL")
	require.Contains(t, out, "facturas")
	require.Contains(t, out, "1m35s")
	require.Contains(t, out, "Total nuevos: 15, fallidos: 1")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.True(t, strings.Contains(lines[1], "OK"), "invoice line: %q", lines[1])
	require.True(t, strings.Contains(lines[2], "ERROR"), "expense line: %q", lines[2])
}

func TestFinalSummaryJobWithoutResult(t *testing.T) {
	out := finalSummary([]jobResult{
		{docType: harvest.DocRemissions, duration: time.Second, err: errors.New("login")},
	})
	require.Contains(t, out, "ERROR")
	require.Contains(t, out, "Total nuevos: 0, fallidos: 0")
}
