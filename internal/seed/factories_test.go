package seed

import (
	"strings"
	"testing"
	"time"

	"farmlink/internal/models"
	"farmlink/internal/validation"
)

func TestBuildAccount_ProfileMatchesRole(t *testing.T) {
	f, err := NewFactory(Repositories{}, 1, 30)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, role := range models.Roles {
		a := f.BuildAccount(role)
		if a.Profile == nil || a.Profile.ProfileRole() != role {
			t.Fatalf("expected %s profile, got %#v", role, a.Profile)
		}
		if err := validation.ValidatePhone(a.Phone); err != nil {
			t.Fatalf("generated phone %q is invalid: %v", a.Phone, err)
		}
		if seen[a.Phone] {
			t.Fatalf("duplicate phone %q", a.Phone)
		}
		seen[a.Phone] = true
	}
	if a := f.BuildAccount(models.RoleUnassigned); a.Profile != nil {
		t.Fatalf("unassigned accounts have no profile, got %#v", a.Profile)
	}
}

func TestBuildPost_WithinWindowAndValidPoll(t *testing.T) {
	f, err := NewFactory(Repositories{}, 3, 30)
	if err != nil {
		t.Fatal(err)
	}
	author := &models.Account{ID: 9}
	polls := 0
	for i := 0; i < 50; i++ {
		p := f.BuildPost(author)
		if p.AuthorID != 9 || strings.TrimSpace(p.Content) == "" {
			t.Fatalf("unexpected post %#v", p)
		}
		if time.Since(p.CreatedAt) > 31*24*time.Hour {
			t.Fatalf("created_at too old: %v", p.CreatedAt)
		}
		if p.Poll != nil {
			polls++
			if len(p.Poll.Choices) != 3 || p.Poll.Choices[0].Text == p.Poll.Choices[1].Text {
				t.Fatalf("unexpected poll choices %#v", p.Poll.Choices)
			}
		}
	}
	if polls == 0 {
		t.Fatalf("expected some posts to carry polls")
	}
}
