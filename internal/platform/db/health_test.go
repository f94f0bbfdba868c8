package db

import (
	"errors"
	"net/http"
	"testing"
)

func TestBuildHealthReport_Healthy(t *testing.T) {
	stats := &PoolStats{TotalConns: 5, IdleConns: 3, MaxConns: 20, Healthy: true}

	code, report := buildHealthReport(nil, stats)

	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if report.Status != "healthy" {
		t.Errorf("expected status healthy, got %q", report.Status)
	}
	if report.Error != "" {
		t.Errorf("expected no error in report, got %q", report.Error)
	}
	if !report.Pool.Healthy {
		t.Error("expected pool to remain healthy")
	}
}

func TestBuildHealthReport_PingFailure(t *testing.T) {
	// A live pool count must not mask a failed ping.
	stats := &PoolStats{TotalConns: 5, MaxConns: 20, Healthy: true}

	code, report := buildHealthReport(errors.New("connection refused"), stats)

	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if report.Status != "unhealthy" {
		t.Errorf("expected status unhealthy, got %q", report.Status)
	}
	if report.Error != "connection refused" {
		t.Errorf("expected ping error in report, got %q", report.Error)
	}
	if report.Pool.Healthy {
		t.Error("expected pool marked unhealthy after ping failure")
	}
}
