package db

import (
	"reflect"
	"testing"

	"github.com/ad/go-scholar-wizard/internal/models"
	"pgregory.net/rapid"
)

func TestSessionRepository_GetUnknown(t *testing.T) {
	repo := NewSessionRepository(newTestQueue(t))

	s, err := repo.Get(404)
	if err != nil {
		t.Fatal(err)
	}
	if s != nil {
		t.Fatalf("Expected no session, got %+v", s)
	}
}

func TestSessionRepository_SaveOverwrites(t *testing.T) {
	repo := NewSessionRepository(newTestQueue(t))

	first := &models.Session{UserID: 7, Role: models.RoleScholar, Email: "a@example.com", Token: "t1"}
	if err := repo.Save(first); err != nil {
		t.Fatal(err)
	}
	second := &models.Session{
		UserID:           7,
		Role:             models.RoleSponsor,
		Email:            "b@example.com",
		Token:            "t2",
		DisplayName:      "Acme",
		AvatarURL:        "http://files/logo.png",
		ProfileCompleted: []models.StepKey{models.StepOrganization},
	}
	if err := repo.Save(second); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(7)
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != models.RoleSponsor || got.Token != "t2" || got.DisplayName != "Acme" {
		t.Errorf("Expected second save to win, got %+v", got)
	}
	if !reflect.DeepEqual(got.ProfileCompleted, []models.StepKey{models.StepOrganization}) {
		t.Errorf("Unexpected completed steps %v", got.ProfileCompleted)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt to be set")
	}

	all, err := repo.GetAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected one session, got %d", len(all))
	}

	if err := repo.Delete(7); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.Get(7); got != nil {
		t.Errorf("Expected session to be deleted, got %+v", got)
	}
}

func TestProperty_SessionRoundTrip(t *testing.T) {
	repo := NewSessionRepository(newTestQueue(t))
	keys := []models.StepKey{models.StepPersonal, models.StepAddress, models.StepContact, models.StepLogo}

	rapid.Check(t, func(t *rapid.T) {
		s := &models.Session{
			UserID:      rapid.Int64Range(1, 1000).Draw(t, "userID"),
			Role:        rapid.SampledFrom([]models.Role{models.RoleScholar, models.RoleSponsor}).Draw(t, "role"),
			Email:       rapid.StringMatching(`[a-z]{1,8}@example\.com`).Draw(t, "email"),
			Token:       rapid.StringMatching(`[a-f0-9]{0,16}`).Draw(t, "token"),
			DisplayName: rapid.StringMatching(`[A-Za-z ]{0,20}`).Draw(t, "name"),
		}
		for _, k := range keys {
			if rapid.Bool().Draw(t, string(k)) {
				s.ProfileCompleted = append(s.ProfileCompleted, k)
			}
		}
		if err := repo.Save(s); err != nil {
			t.Fatal(err)
		}
		got, err := repo.Get(s.UserID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Role != s.Role || got.Email != s.Email || got.Token != s.Token || got.DisplayName != s.DisplayName {
			t.Fatalf("round trip mismatch: saved %+v, got %+v", s, got)
		}
		if len(got.ProfileCompleted) != len(s.ProfileCompleted) {
			t.Fatalf("completed steps: saved %v, got %v", s.ProfileCompleted, got.ProfileCompleted)
		}
	})
}
