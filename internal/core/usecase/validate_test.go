package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

func evidenceFixture() []domain.RankedCandidate {
	return []domain.RankedCandidate{
		{
			FusedCandidate: domain.FusedCandidate{
				Candidate: domain.Candidate{
					ID:            "p-1",
					Name:          "Siteco Floodlight 150",
					Wattage:       150,
					LifetimeHours: 50000,
					IPRating:      "IP65",
				},
			},
		},
	}
}

func newTestValidator() *Validator {
	return NewValidator(0.7, 0.3)
}

func TestValidateAcceptsSupportedAnswer(t *testing.T) {
	v := newTestValidator()

	report := v.Validate(
		"The Siteco Floodlight 150 has a wattage of 150 W.",
		domain.Classification{},
		evidenceFixture(),
	)
	if !report.Accept {
		t.Fatalf("expected accept, got issues %v", report.Issues)
	}
	if len(report.Issues) != 0 {
		t.Fatalf("accepted report must carry no issues, got %v", report.Issues)
	}
	if report.Confidence() <= 0 {
		t.Fatal("accepted answer must have positive confidence")
	}
}

func TestValidateRejectsWrongRegulatedWattage(t *testing.T) {
	v := newTestValidator()

	report := v.Validate(
		"The floodlight consumes 200 W.",
		domain.Classification{},
		evidenceFixture(),
	)
	if report.Accept {
		t.Fatal("wrong wattage value must be rejected")
	}
	found := false
	for _, issue := range report.Issues {
		if strings.Contains(issue, "200") && strings.Contains(issue, "wattage") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an issue naming the unsupported wattage, got %v", report.Issues)
	}
}

func TestValidateRejectsLowConsistency(t *testing.T) {
	v := newTestValidator()

	report := v.Validate(
		"It glows purple underwater. Penguins love this model.",
		domain.Classification{},
		evidenceFixture(),
	)
	if report.Accept {
		t.Fatal("unsupported claims must be rejected")
	}
	if len(report.Issues) == 0 {
		t.Fatal("rejected report must list issues")
	}
	if report.FactualConsistency != 0 {
		t.Fatalf("expected zero consistency, got %f", report.FactualConsistency)
	}
}

func TestValidateCompletenessCountsRequestedAttributes(t *testing.T) {
	v := newTestValidator()
	cls := domain.Classification{
		Filter: domain.AttributeFilter{WattageMin: 100, LifetimeHoursMin: 400},
	}

	report := v.Validate("These models draw 150 W.", cls, evidenceFixture())
	if report.Completeness != 0.5 {
		t.Fatalf("expected completeness 0.5, got %f", report.Completeness)
	}
}

func TestValidateNoEvidenceIsUnverifiable(t *testing.T) {
	v := newTestValidator()

	report := v.Validate("Anything at all.", domain.Classification{}, nil)
	if report.Accept {
		t.Fatal("no evidence must force a reject")
	}
	if !report.Unverifiable {
		t.Fatal("report must be marked unverifiable")
	}
	if report.Confidence() != 0 {
		t.Fatalf("unverifiable confidence must be 0, got %f", report.Confidence())
	}
	if len(report.Issues) == 0 {
		t.Fatal("unverifiable reject must carry an issue")
	}
}

func TestValidateNumberFormattingMatches(t *testing.T) {
	v := newTestValidator()

	report := v.Validate(
		"The Siteco Floodlight 150 is rated for 50,000 hours.",
		domain.Classification{},
		evidenceFixture(),
	)
	if !report.Accept {
		t.Fatalf("separator-formatted number must match evidence, got issues %v", report.Issues)
	}
}
