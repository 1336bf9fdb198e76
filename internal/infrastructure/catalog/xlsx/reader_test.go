package xlsx

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestReadProductsParsesEnglishHeaders(t *testing.T) {
	buf := buildSheet(t, [][]any{
		{"Name", "SKU", "Primary Number", "Wattage (W)", "Lifetime (h)", "IP Rating", "Certifications"},
		{"Floodlight 150", "FL-150", "4062172212311", "150 W", "50,000", "IP65", "CE; ENEC"},
		{"Panel 36", "PL-36", "", "36", "60000", "IP20", ""},
	})

	records, err := NewReader().ReadProducts(buf)
	if err != nil {
		t.Fatalf("ReadProducts: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Name != "Floodlight 150" || first.SKU != "FL-150" {
		t.Fatalf("unexpected identity: %+v", first)
	}
	if first.PrimaryNumber != "4062172212311" {
		t.Fatalf("unexpected primary number %q", first.PrimaryNumber)
	}
	if first.Wattage != 150 || first.LifetimeHours != 50000 {
		t.Fatalf("unit suffixes must be tolerated, got %+v", first)
	}
	if len(first.Certifications) != 2 || first.Certifications[0] != "CE" {
		t.Fatalf("unexpected certifications %v", first.Certifications)
	}
}

func TestReadProductsParsesGermanHeaders(t *testing.T) {
	buf := buildSheet(t, [][]any{
		{"Produktname", "Artikelnummer", "Leistung (W)", "Lebensdauer (h)", "Schutzart", "Einsatzbereich"},
		{"Strahler 150", "ST-150", "150", "50.000", "IP65", "Außenbereich"},
	})

	records, err := NewReader().ReadProducts(buf)
	if err != nil {
		t.Fatalf("ReadProducts: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.SKU != "ST-150" || rec.Wattage != 150 || rec.LifetimeHours != 50000 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.ApplicationArea != "Außenbereich" {
		t.Fatalf("unexpected application area %q", rec.ApplicationArea)
	}
}

func TestReadProductsSkipsNamelessRows(t *testing.T) {
	buf := buildSheet(t, [][]any{
		{"Name", "SKU"},
		{"", "GHOST-1"},
		{"Real Product", "RP-1"},
	})

	records, err := NewReader().ReadProducts(buf)
	if err != nil {
		t.Fatalf("ReadProducts: %v", err)
	}
	if len(records) != 1 || records[0].SKU != "RP-1" {
		t.Fatalf("expected only the named row, got %+v", records)
	}
}

func TestReadProductsRequiresNameColumn(t *testing.T) {
	buf := buildSheet(t, [][]any{
		{"Foo", "Bar"},
		{"x", "y"},
	})

	if _, err := NewReader().ReadProducts(buf); err == nil {
		t.Fatal("expected error for unrecognizable headers")
	}
}

func TestReadProductsRejectsGarbage(t *testing.T) {
	if _, err := NewReader().ReadProducts(bytes.NewReader([]byte("not a zip"))); err == nil {
		t.Fatal("expected error for non-xlsx input")
	}
}
