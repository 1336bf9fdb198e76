package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

// Reader parses product records from the first sheet of an xlsx catalog
// export. The header row is matched by name, so column order does not
// matter; both the English and German export headers are understood.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// columnAliases maps a canonical field to the header spellings seen in
// catalog exports. Matching is case-insensitive on the trimmed header.
var columnAliases = map[string][]string{
	"name":              {"name", "product", "product name", "produkt", "produktname"},
	"sku":               {"sku", "article", "article number", "artikelnummer", "artikel-nr"},
	"primary_number":    {"primary number", "ean", "gtin", "erzeugnisnummer", "product number"},
	"wattage":           {"wattage", "wattage (w)", "power", "power (w)", "leistung", "leistung (w)"},
	"lifetime_hours":    {"lifetime", "lifetime (h)", "lifetime hours", "lebensdauer", "lebensdauer (h)"},
	"color_temperature": {"color temperature", "colour temperature", "cct", "farbtemperatur"},
	"luminous_flux":     {"luminous flux", "luminous flux (lm)", "lumen", "lichtstrom", "lichtstrom (lm)"},
	"ip_rating":         {"ip rating", "ip", "protection class", "schutzart"},
	"application_area":  {"application area", "application", "einsatzbereich", "anwendungsbereich"},
	"certifications":    {"certifications", "certificates", "zertifizierungen", "zertifikate"},
	"description":       {"description", "beschreibung"},
}

func (r *Reader) ReadProducts(src io.Reader) ([]domain.ProductRecord, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	columns := mapColumns(rows[0])
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("sheet %q has no recognizable name column", sheets[0])
	}

	records := make([]domain.ProductRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := domain.ProductRecord{
			Name:             cell(row, columns, "name"),
			SKU:              cell(row, columns, "sku"),
			PrimaryNumber:    cell(row, columns, "primary_number"),
			Wattage:          cellInt(row, columns, "wattage"),
			LifetimeHours:    cellInt(row, columns, "lifetime_hours"),
			ColorTemperature: cell(row, columns, "color_temperature"),
			LuminousFlux:     cellInt(row, columns, "luminous_flux"),
			IPRating:         cell(row, columns, "ip_rating"),
			ApplicationArea:  cell(row, columns, "application_area"),
			Certifications:   splitList(cell(row, columns, "certifications")),
			Description:      cell(row, columns, "description"),
		}
		if rec.Name == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func mapColumns(header []string) map[string]int {
	byAlias := make(map[string]string)
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			byAlias[alias] = field
		}
	}

	columns := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if field, ok := byAlias[key]; ok {
			if _, taken := columns[field]; !taken {
				columns[field] = i
			}
		}
	}
	return columns
}

func cell(row []string, columns map[string]int, field string) string {
	i, ok := columns[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// cellInt extracts the leading integer, tolerating unit suffixes like
// "150 W" and separator formatting like "50,000".
func cellInt(row []string, columns map[string]int, field string) int {
	raw := cell(row, columns, field)
	if raw == "" {
		return 0
	}
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, ".", "")

	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0
	}
	return n
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
