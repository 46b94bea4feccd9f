package models

import (
	"testing"

	"pgregory.net/rapid"
)

func TestScholarshipFlags_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := &Scholarship{
			Completed: ScholarshipSteps{
				Details:     rapid.Bool().Draw(t, "details"),
				Funding:     rapid.Bool().Draw(t, "funding"),
				Eligibility: rapid.Bool().Draw(t, "eligibility"),
				Selection:   rapid.Bool().Draw(t, "selection"),
				Documents:   rapid.Bool().Draw(t, "documents"),
			},
			Status: rapid.SampledFrom([]ScholarshipStatus{ScholarshipDraft, ScholarshipSubmitted, ScholarshipActive}).Draw(t, "status"),
		}
		paid := rapid.Bool().Draw(t, "paid")
		if rapid.Bool().Draw(t, "hasFunding") {
			s.Funding = &ScholarshipFunding{Amount: 100, Currency: "USD", Slots: 1, IsPaid: paid}
		}
		method := rapid.SampledFrom([]SelectionMethod{"", SelectionSelf, SelectionMatched}).Draw(t, "method")
		if method != "" {
			s.Selection = &ScholarshipSelection{Method: method}
		}

		f := s.Flags()

		if f.Details != s.Completed.Details || f.Eligibility != s.Completed.Eligibility ||
			f.Selection != s.Completed.Selection || f.Documents != s.Completed.Documents {
			t.Fatalf("flags do not mirror completed steps: %+v vs %+v", f, s.Completed)
		}
		if s.Funding == nil && f.FundingPaid {
			t.Fatalf("funding cannot be paid without funding data")
		}
		if s.Funding != nil && f.FundingPaid != paid {
			t.Fatalf("FundingPaid = %v, want %v", f.FundingPaid, paid)
		}
		if f.RequiresDocuments() != (method == SelectionSelf) {
			t.Fatalf("RequiresDocuments = %v for method %q", f.RequiresDocuments(), method)
		}
		if f.Submitted != (s.Status != ScholarshipDraft) {
			t.Fatalf("Submitted = %v for status %s", f.Submitted, s.Status)
		}
	})
}

func TestScholarshipPayload(t *testing.T) {
	s := &Scholarship{Details: &ScholarshipDetails{Title: "STEM"}}
	if p := s.Payload(StepDetails); p == nil || p.(*ScholarshipDetails).Title != "STEM" {
		t.Fatalf("expected details payload, got %#v", p)
	}
	if p := s.Payload(StepFunding); p != nil {
		t.Fatalf("expected nil funding payload, got %#v", p)
	}
	if p := s.Payload(StepKey("nope")); p != nil {
		t.Fatalf("expected nil for unknown step, got %#v", p)
	}
}

func TestListQueryValues(t *testing.T) {
	v := ListQuery{Q: "stem", Status: "active"}.Values()
	if v.Get("page") != "1" || v.Get("limit") != "20" {
		t.Errorf("defaults not applied: %v", v)
	}
	if v.Get("q") != "stem" || v.Get("status") != "active" {
		t.Errorf("filters missing: %v", v)
	}
	if v.Has("type") || v.Has("dateFrom") {
		t.Errorf("empty filters should be omitted: %v", v)
	}
}

func TestPageMetaPages(t *testing.T) {
	cases := []struct {
		meta PageMeta
		want int
	}{
		{PageMeta{Limit: 10, Total: 0}, 0},
		{PageMeta{Limit: 10, Total: 10}, 1},
		{PageMeta{Limit: 10, Total: 11}, 2},
		{PageMeta{Limit: 0, Total: 11}, 0},
	}
	for _, c := range cases {
		if got := c.meta.Pages(); got != c.want {
			t.Errorf("Pages(%+v) = %d, want %d", c.meta, got, c.want)
		}
	}
}
