package domain

import (
	"strings"
	"time"
)

// ProductRecord is one structured catalog entry as stored in the relational
// store and indexed in the vector store.
type ProductRecord struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	SKU              string    `json:"sku"`
	PrimaryNumber    string    `json:"primary_number"`
	Wattage          int       `json:"wattage"`
	LifetimeHours    int       `json:"lifetime_hours"`
	ColorTemperature string    `json:"color_temperature"`
	LuminousFlux     int       `json:"luminous_flux"`
	IPRating         string    `json:"ip_rating"`
	ApplicationArea  string    `json:"application_area"`
	Certifications   []string  `json:"certifications"`
	Description      string    `json:"description"`
	SourceFile       string    `json:"source_file"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AttributeFilter carries the numeric/categorical predicates extracted from
// a query. Zero values mean "not requested".
type AttributeFilter struct {
	WattageMin       int      `json:"wattage_min,omitempty"`
	WattageMax       int      `json:"wattage_max,omitempty"`
	LifetimeHoursMin int      `json:"lifetime_hours_min,omitempty"`
	LifetimeHoursMax int      `json:"lifetime_hours_max,omitempty"`
	ColorTemperature string   `json:"color_temperature,omitempty"`
	IPRating         string   `json:"ip_rating,omitempty"`
	ApplicationArea  string   `json:"application_area,omitempty"`
	Certifications   []string `json:"certifications,omitempty"`
}

func (f AttributeFilter) Empty() bool {
	return f.WattageMin == 0 && f.WattageMax == 0 &&
		f.LifetimeHoursMin == 0 && f.LifetimeHoursMax == 0 &&
		f.ColorTemperature == "" && f.IPRating == "" &&
		f.ApplicationArea == "" && len(f.Certifications) == 0
}

// RequestedAttributes lists the attribute names the filter constrains,
// used by the validator for the completeness score.
func (f AttributeFilter) RequestedAttributes() []string {
	var out []string
	if f.WattageMin > 0 || f.WattageMax > 0 {
		out = append(out, "wattage")
	}
	if f.LifetimeHoursMin > 0 || f.LifetimeHoursMax > 0 {
		out = append(out, "lifetime")
	}
	if f.ColorTemperature != "" {
		out = append(out, "color temperature")
	}
	if f.IPRating != "" {
		out = append(out, "ip rating")
	}
	if f.ApplicationArea != "" {
		out = append(out, "application area")
	}
	if len(f.Certifications) > 0 {
		out = append(out, "certifications")
	}
	return out
}

// MatchCount reports how many of the filter's predicates a candidate
// satisfies. Fusion orders exact/filter results by this specificity.
func (f AttributeFilter) MatchCount(c Candidate) int {
	matched := 0
	if f.WattageMin > 0 && c.Wattage >= f.WattageMin {
		matched++
	}
	if f.WattageMax > 0 && c.Wattage > 0 && c.Wattage <= f.WattageMax {
		matched++
	}
	if f.LifetimeHoursMin > 0 && c.LifetimeHours >= f.LifetimeHoursMin {
		matched++
	}
	if f.LifetimeHoursMax > 0 && c.LifetimeHours > 0 && c.LifetimeHours <= f.LifetimeHoursMax {
		matched++
	}
	if f.ColorTemperature != "" && strings.EqualFold(c.ColorTemperature, f.ColorTemperature) {
		matched++
	}
	if f.IPRating != "" && strings.EqualFold(c.IPRating, f.IPRating) {
		matched++
	}
	if f.ApplicationArea != "" && strings.Contains(strings.ToLower(c.ApplicationArea), strings.ToLower(f.ApplicationArea)) {
		matched++
	}
	return matched
}
