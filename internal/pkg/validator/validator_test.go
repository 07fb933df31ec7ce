package validator

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "admin@acme.com", "first.last@sub.domain.io"}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("ValidateEmail(%q) = %v, want nil", email, err)
		}
	}

	invalid := []string{"", "plain", "no-at.com", "a@b", "spaces in@x.com"}
	for _, email := range invalid {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("ValidateEmail(%q) = nil, want error", email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("Secure12"); err != nil {
		t.Errorf("8-char password rejected: %v", err)
	}
	if err := ValidatePassword("short"); err == nil {
		t.Error("short password accepted")
	}
}
