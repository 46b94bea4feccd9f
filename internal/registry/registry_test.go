package registry

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ad/go-scholar-wizard/internal/models"
	"pgregory.net/rapid"
)

var allFlows = []models.Flow{models.FlowScholarProfile, models.FlowSponsorProfile, models.FlowScholarship}

func TestCatalogueSizes(t *testing.T) {
	r := MustLoad()
	want := map[models.Flow]int{
		models.FlowScholarProfile: 18,
		models.FlowSponsorProfile: 7,
		models.FlowScholarship:    5,
	}
	for flow, n := range want {
		if got := len(r.Keys(flow)); got != n {
			t.Errorf("%s: %d steps, want %d", flow, got, n)
		}
	}
	if got := len(r.ScholarshipKeys(models.SelectionMatched)); got != 4 {
		t.Errorf("matched scholarship flow has %d steps, want 4", got)
	}
	if got := len(r.ScholarshipKeys(models.SelectionSelf)); got != 5 {
		t.Errorf("self-selection scholarship flow has %d steps, want 5", got)
	}
	if got := r.Keys(models.FlowScholarProfile)[1:3]; got[0] != models.StepAddress || got[1] != models.StepContact {
		t.Errorf("address must be followed by contact, got %v", got)
	}
}

func TestCataloguePayloadsAreExhaustive(t *testing.T) {
	r := MustLoad()
	for _, flow := range allFlows {
		for _, step := range r.Steps(flow) {
			p, err := New(flow, step.Key)
			if err != nil {
				t.Fatalf("%s/%s has no payload: %v", flow, step.Key, err)
			}
			if p.StepFlow() != flow || p.StepKey() != step.Key {
				t.Errorf("%s/%s payload reports %s/%s", flow, step.Key, p.StepFlow(), p.StepKey())
			}

			tags := jsonFields(p)
			for _, f := range step.Fields {
				if !tags[f.Name] {
					t.Errorf("%s/%s: catalogue field %s missing from payload", flow, step.Key, f.Name)
				}
			}
			_, attaches := p.(models.FileAttacher)
			if step.FileBearing() != attaches {
				t.Errorf("%s/%s: file-bearing=%v but FileAttacher=%v", flow, step.Key, step.FileBearing(), attaches)
			}
			for _, f := range step.Fields {
				if f.Kind == models.FieldFile && !p.(models.FileAttacher).AttachFile(f.Name, "https://files.test/x") {
					t.Errorf("%s/%s: AttachFile rejected catalogue field %s", flow, step.Key, f.Name)
				}
			}
		}
	}
}

func jsonFields(p models.StepPayload) map[string]bool {
	out := map[string]bool{}
	typ := reflect.TypeOf(p).Elem()
	for i := 0; i < typ.NumField(); i++ {
		name := strings.SplitN(typ.Field(i).Tag.Get("json"), ",", 2)[0]
		out[name] = true
	}
	return out
}

func TestLookupUnknownKeyReturnsPlaceholder_Property(t *testing.T) {
	r := MustLoad()
	rapid.Check(t, func(t *rapid.T) {
		flow := rapid.SampledFrom(allFlows).Draw(t, "flow")
		key := models.StepKey(rapid.StringMatching(`[a-z\-]{0,20}`).Draw(t, "key"))

		step := r.Lookup(flow, key)
		if r.Has(flow, key) {
			if step.Placeholder || step.Key != key {
				t.Fatalf("registered key %q resolved to %+v", key, step)
			}
			return
		}
		if !step.Placeholder || step.Label != PlaceholderLabel || len(step.Fields) != 0 {
			t.Fatalf("unknown key %q must give placeholder, got %+v", key, step)
		}
	})
}

func TestNewUnknownStep(t *testing.T) {
	_, err := New(models.FlowSponsorProfile, models.StepEssays)
	if !errors.Is(err, models.ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %v", err)
	}
}

func TestDecodeEmptyBody(t *testing.T) {
	for _, raw := range []string{"", "null", "  "} {
		p, err := Decode(models.FlowScholarProfile, models.StepAddress, []byte(raw))
		if err != nil {
			t.Fatalf("Decode(%q): %v", raw, err)
		}
		if *p.(*models.ScholarAddress) != (models.ScholarAddress{}) {
			t.Errorf("Decode(%q) should give empty payload, got %+v", raw, p)
		}
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte("scholarship:\n  - key: details\n  - key: details\n"))
	if err == nil {
		t.Fatal("expected duplicate step error")
	}
	_, err = Parse([]byte("scholarship:\n  - key: details\n    fields:\n      - {name: x, kind: blob}\n"))
	if err == nil {
		t.Fatal("expected unknown kind error")
	}
}
