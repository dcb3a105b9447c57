package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/kmlgraph/pkg/config"
)

const stationSave = "examples/station.sfs"

func newTestApp(t *testing.T) *App {
	t.Helper()
	return NewApp(config.DefaultConfig(), slog.New(slog.DiscardHandler))
}

func vesselByName(t *testing.T, r *FileReport, name string) VesselReport {
	t.Helper()
	for _, v := range r.Vessels {
		if v.Name == name {
			return v
		}
	}
	t.Fatalf("vessel %q not in report: %+v", name, r.Vessels)
	return VesselReport{}
}

// TestE2EStationExample exercises the full pipeline: save file → parser →
// specialization → attachment graph → dock validator → report.
func TestE2EStationExample(t *testing.T) {
	app := newTestApp(t)

	report, err := app.Check(stationSave)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(report.Vessels) != 2 {
		t.Fatalf("expected 2 vessels, got %d", len(report.Vessels))
	}
	if report.Size == "" {
		t.Error("size must be reported")
	}

	station := vesselByName(t, report, "Station")
	if station.Parts != 4 || station.Roots != 1 {
		t.Errorf("station: parts=%d roots=%d, want 4/1", station.Parts, station.Roots)
	}
	if station.Docked != 2 {
		t.Errorf("station: expected both ports docked, got %d", station.Docked)
	}
	if len(station.Repair) != 0 || len(station.Findings) != 0 {
		t.Errorf("station must be clean: repair=%v findings=%v", station.Repair, station.Findings)
	}

	wreck := vesselByName(t, report, "Wreck")
	if wreck.Parts != 3 || wreck.Roots != 2 {
		t.Errorf("wreck: parts=%d roots=%d, want 3/2", wreck.Parts, wreck.Roots)
	}
	if len(wreck.Repair) != 1 {
		t.Fatalf("wreck: expected one port needing repair, got %v", wreck.Repair)
	}
	port := wreck.Repair[0]
	if port.Index != 1 || port.UID != "201" || port.State != "Docked (docker)" {
		t.Errorf("unexpected repair entry: %+v", port)
	}

	var sawUID, sawParent bool
	for _, d := range report.Diagnostics {
		if strings.Contains(d.Message, "uid 999") {
			sawUID = true
		}
		if strings.Contains(d.Message, "parent part index [7]") {
			sawParent = true
		}
		if d.Line <= 0 {
			t.Errorf("diagnostic without line: %+v", d)
		}
	}
	if !sawUID || !sawParent {
		t.Errorf("expected dangling dock and bad parent diagnostics, got %+v", report.Diagnostics)
	}
	if report.Problems() < 3 {
		t.Errorf("Problems() = %d, want >= 3", report.Problems())
	}
}

// TestE2ERepairOnly keeps only vessels with docks needing repair and drops
// the diagnostics list.
func TestE2ERepairOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Check.RepairOnly = true
	app := NewApp(cfg, slog.New(slog.DiscardHandler))

	report, err := app.Check(stationSave)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(report.Vessels) != 1 || report.Vessels[0].Name != "Wreck" {
		t.Errorf("expected only Wreck, got %+v", report.Vessels)
	}
	if len(report.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %v", report.Diagnostics)
	}
}

// TestE2EQuery runs predicates over the example save.
func TestE2EQuery(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		expr string
		want []string // uids
	}{
		{`(is-dock)`, []string{"101", "102", "201"}},
		{`(needs-repair)`, []string{"201"}},
		{`(and (has-resource "LiquidFuel") (< (resource-ratio "LiquidFuel") 0.5))`, []string{"103"}},
		{`(< (resource-ratio) 0)`, []string{"101", "102", "200", "201", "202"}},
		{`(and (is-root) (> (attached-count) 0))`, []string{"100", "200"}},
		{``, []string{"100", "101", "102", "103", "200", "201", "202"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res, err := app.Query(stationSave, tt.expr)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(res.Errors) > 0 {
				t.Fatalf("eval errors: %v", res.Errors)
			}
			var got []string
			for _, m := range res.Matches {
				got = append(got, m.UID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// TestE2EQuerySyntaxError ensures eval errors are reported, not fatal errors.
func TestE2EQuerySyntaxError(t *testing.T) {
	app := newTestApp(t)
	res, err := app.Query(stationSave, `(is-dock`)
	if err != nil {
		t.Fatalf("syntax errors must not be fatal: %v", err)
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(res.Matches) != 0 {
		t.Errorf("expected 0 matches on error, got %d", len(res.Matches))
	}
}

// TestE2EFormatRoundTrip checks that canonical output is stable and that
// the example is already canonical.
func TestE2EFormatRoundTrip(t *testing.T) {
	app := newTestApp(t)

	var first bytes.Buffer
	if err := app.Format(stationSave, &first, false); err != nil {
		t.Fatalf("Format: %v", err)
	}
	orig, err := os.ReadFile(stationSave)
	if err != nil {
		t.Fatal(err)
	}
	if first.String() != string(orig) {
		t.Error("example save is not in canonical layout")
	}

	differs, err := app.NeedsFormat(stationSave)
	if err != nil || differs {
		t.Errorf("NeedsFormat = %v, %v", differs, err)
	}
}

func TestE2EFormatWrite(t *testing.T) {
	app := newTestApp(t)
	path := filepath.Join(t.TempDir(), "messy.sfs")
	messy := "GAME\n{\n  version=1.12.5\n    FLIGHTSTATE {\n  }\n}\n"
	if err := os.WriteFile(path, []byte(messy), 0o644); err != nil {
		t.Fatal(err)
	}

	differs, err := app.NeedsFormat(path)
	if err != nil || !differs {
		t.Fatalf("NeedsFormat = %v, %v; want true", differs, err)
	}
	if err := app.Format(path, nil, true); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if differs, _ := app.NeedsFormat(path); differs {
		t.Error("file still differs after fmt -w")
	}
}

// TestE2EFormatKeepsCRLF formats a CRLF save without turning it into LF.
func TestE2EFormatKeepsCRLF(t *testing.T) {
	app := newTestApp(t)
	orig, err := os.ReadFile(stationSave)
	if err != nil {
		t.Fatal(err)
	}
	crlf := strings.ReplaceAll(string(orig), "\n", "\r\n")
	path := filepath.Join(t.TempDir(), "station.sfs")
	if err := os.WriteFile(path, []byte(crlf), 0o644); err != nil {
		t.Fatal(err)
	}

	differs, err := app.NeedsFormat(path)
	if err != nil || differs {
		t.Fatalf("NeedsFormat = %v, %v; canonical CRLF must not differ", differs, err)
	}
	if err := app.Format(path, nil, true); err != nil {
		t.Fatalf("Format: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != crlf {
		t.Error("fmt -w changed the line endings")
	}
}

// TestE2ETree prints the station with its resolved part hierarchy.
func TestE2ETree(t *testing.T) {
	app := newTestApp(t)
	var buf bytes.Buffer
	if err := app.Tree(stationSave, &buf, 0); err != nil {
		t.Fatalf("Tree: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"GAME",
		"  FLIGHTSTATE",
		"    VESSEL (Station)",
		"      PART [0, root] (core)",
		"            PART [3] (fuelTank)",
		"{Docked (docker), needs repair}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("tree output missing %q:\n%s", want, out)
		}
	}
}
