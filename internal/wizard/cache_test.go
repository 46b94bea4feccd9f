package wizard

import (
	"reflect"
	"testing"

	"github.com/ad/go-scholar-wizard/internal/models"
	"pgregory.net/rapid"
)

// Setting the same value twice leaves the cache as after a single set.
func TestDraftCacheSetIdempotent_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := NewDraftCache()
		v := &models.ScholarAddress{
			HomeAddress: rapid.String().Draw(t, "home"),
			City:        rapid.String().Draw(t, "city"),
		}
		twin := *v

		if !c.Set(models.StepAddress, v) {
			t.Fatal("first set must report a change")
		}
		if c.Set(models.StepAddress, &twin) {
			t.Fatal("equal value must not report a change")
		}
		got, ok := c.Get(models.StepAddress)
		if !ok || !reflect.DeepEqual(got, v) || c.Len() != 1 {
			t.Fatalf("cache = %#v (len %d)", got, c.Len())
		}
	})
}

func TestDraftCacheLastWriteWins(t *testing.T) {
	c := NewDraftCache()
	c.Set(models.StepAddress, &models.ScholarAddress{HomeAddress: "1 First St"})
	c.Set(models.StepAddress, &models.ScholarAddress{HomeAddress: "2 Second St"})
	c.Set(models.StepContact, &models.ScholarContact{Email: "a@b.co"})

	got, _ := c.Get(models.StepAddress)
	if got.(*models.ScholarAddress).HomeAddress != "2 Second St" {
		t.Errorf("address = %+v", got)
	}
	if keys := c.Keys(); len(keys) != 2 || keys[0] != models.StepAddress {
		t.Errorf("keys = %v", keys)
	}

	c.Reset()
	if c.Len() != 0 {
		t.Error("reset left entries behind")
	}
}
