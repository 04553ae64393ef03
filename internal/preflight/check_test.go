package preflight_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/cepv-cli/internal/preflight"
)

func TestCheckFileValid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "plant.csv")
	content := "Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
		"Pump-1,Pump,120,5.2,110\n" +
		"Valve-1,Valve,60,4.1,105\n" +
		"Pump-2,Pump,n/a,5.0,112\n" +
		"Pump-3,Pump,130,5.6,115\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rep, err := preflight.CheckFile(p)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !rep.OK() {
		t.Fatalf("expected OK, problems: %v", rep.Problems())
	}
	if rep.Rows != 4 || rep.Usable != 3 {
		t.Fatalf("expected 4 rows / 3 usable, got %d / %d", rep.Rows, rep.Usable)
	}
	if len(rep.Skipped) != 1 || rep.Skipped[0].Line != 4 || rep.Skipped[0].Column != "Flowrate" {
		t.Fatalf("unexpected skipped rows: %+v", rep.Skipped)
	}
	if rep.Types["Pump"] != 2 || rep.Types["Valve"] != 1 {
		t.Fatalf("unexpected type counts: %v", rep.Types)
	}
	if got := rep.Means["Flowrate"]; got < 103.33 || got > 103.34 {
		t.Fatalf("unexpected flowrate mean: %v", got)
	}
	if names := rep.TypeNames(); names[0] != "Pump" {
		t.Fatalf("expected Pump first, got %v", names)
	}
}

func TestCheckMissingColumns(t *testing.T) {
	rep, err := preflight.Check("x.csv", strings.NewReader("Equipment Name,Flowrate\nA,1\n"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if rep.OK() {
		t.Fatalf("expected failure")
	}
	want := "missing required columns: Type, Pressure, Temperature"
	if p := rep.Problems(); len(p) == 0 || p[0] != want {
		t.Fatalf("expected %q, got %v", want, p)
	}
}

func TestCheckEmptyFile(t *testing.T) {
	rep, err := preflight.Check("empty.csv", strings.NewReader(""))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(rep.Missing) != len(preflight.RequiredColumns) {
		t.Fatalf("expected all columns missing, got %v", rep.Missing)
	}
}

func TestCheckTSVAndBOM(t *testing.T) {
	in := "\ufeffEquipment Name\tType\tFlowrate\tPressure\tTemperature\nP\tPump\t1e2\t2\t3\n"
	rep, err := preflight.Check("plant.tsv", strings.NewReader(in))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !rep.OK() || rep.Delimiter != '\t' || rep.Means["Flowrate"] != 100 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}
