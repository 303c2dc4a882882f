package domain

import "testing"

func TestValidSlug(t *testing.T) {
	for _, s := range []string{"acme", "acme-rooms", "a", "a1"} {
		if !ValidSlug(s) {
			t.Errorf("ValidSlug(%q) = false", s)
		}
	}
	for _, s := range []string{"", "-acme", "acme-", "Acme", "acme.rooms", "a_b"} {
		if ValidSlug(s) {
			t.Errorf("ValidSlug(%q) = true", s)
		}
	}
}

func TestOrganization_Validate(t *testing.T) {
	if err := (&Organization{ID: "org-1", Slug: "acme"}).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (&Organization{Slug: "acme"}).Validate(); err == nil {
		t.Error("missing id should fail")
	}
	if err := (&Organization{ID: "org-1", Slug: "ACME"}).Validate(); err == nil {
		t.Error("bad slug should fail")
	}
}
