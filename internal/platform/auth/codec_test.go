package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"punchcard/internal/platform/config"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(config.JWTConfig{
		Secret:        "access-secret",
		AccessExpiry:  "15m",
		RefreshSecret: "refresh-secret",
		RefreshExpiry: "7d",
	})
	if err != nil {
		t.Fatalf("NewCodec returned error: %v", err)
	}
	return codec
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	access, err := codec.SignAccess("usr_1", "admin@x.com", "org_1", "admin")
	if err != nil {
		t.Fatalf("SignAccess returned error: %v", err)
	}

	claims, err := codec.VerifyAccess(access)
	if err != nil {
		t.Fatalf("VerifyAccess returned error: %v", err)
	}
	if claims.UserID != "usr_1" || claims.Email != "admin@x.com" || claims.OrganizationID != "org_1" || claims.Role != "admin" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.TokenKind != TokenKindAccess {
		t.Errorf("expected access kind, got %s", claims.TokenKind)
	}

	refresh, err := codec.SignRefresh("usr_1", "admin@x.com", "org_1", "admin")
	if err != nil {
		t.Fatalf("SignRefresh returned error: %v", err)
	}
	if _, err := codec.VerifyRefresh(refresh); err != nil {
		t.Fatalf("VerifyRefresh returned error: %v", err)
	}
}

func TestCodecRejectsWrongKind(t *testing.T) {
	codec := newTestCodec(t)

	access, _ := codec.SignAccess("usr_1", "a@x.com", "org_1", "personal")
	refresh, _ := codec.SignRefresh("usr_1", "a@x.com", "org_1", "personal")

	if _, err := codec.VerifyAccess(refresh); err == nil {
		t.Error("refresh token passed access verification")
	}
	if _, err := codec.VerifyRefresh(access); err == nil {
		t.Error("access token passed refresh verification")
	}
}

func TestCodecRejectsTampered(t *testing.T) {
	codec := newTestCodec(t)

	access, _ := codec.SignAccess("usr_1", "a@x.com", "org_1", "personal")
	tampered := access[:len(access)-2] + "xx"

	if _, err := codec.VerifyAccess(tampered); err == nil {
		t.Error("tampered token passed verification")
	}
}

func TestCodecExpiryBoundary(t *testing.T) {
	codec := newTestCodec(t)

	issued := time.Now()
	codec.now = func() time.Time { return issued }
	access, err := codec.SignAccess("usr_1", "a@x.com", "org_1", "personal")
	if err != nil {
		t.Fatalf("SignAccess returned error: %v", err)
	}

	// Just inside the window still verifies.
	codec.now = func() time.Time { return issued.Add(codec.accessTTL - time.Second) }
	if _, err := codec.VerifyAccess(access); err != nil {
		t.Errorf("token inside expiry window failed verification: %v", err)
	}

	// exp == now must fail, not pass.
	codec.now = func() time.Time { return issued.Add(codec.accessTTL) }
	if _, err := codec.VerifyAccess(access); err == nil {
		t.Error("token at exact expiry boundary passed verification")
	}
}

func TestCodecSignsDistinctTokens(t *testing.T) {
	codec := newTestCodec(t)

	// Freeze the clock so iat/exp are identical between issuances. The jti
	// must still make every signed token, and therefore its hash, unique.
	frozen := time.Now()
	codec.now = func() time.Time { return frozen }

	first, err := codec.SignRefresh("usr_1", "a@x.com", "org_1", "personal")
	if err != nil {
		t.Fatalf("SignRefresh returned error: %v", err)
	}
	second, err := codec.SignRefresh("usr_1", "a@x.com", "org_1", "personal")
	if err != nil {
		t.Fatalf("SignRefresh returned error: %v", err)
	}

	if first == second {
		t.Fatal("two same-second refresh tokens are byte-identical")
	}
	if HashToken(first) == HashToken(second) {
		t.Error("two same-second refresh tokens share a hash")
	}

	for _, token := range []string{first, second} {
		claims, err := codec.VerifyRefresh(token)
		if err != nil {
			t.Fatalf("VerifyRefresh returned error: %v", err)
		}
		if claims.ID == "" {
			t.Error("signed token carries no jti")
		}
	}
}

func TestCodecDecodeUnsafe(t *testing.T) {
	codec := newTestCodec(t)

	issued := time.Now().Add(-time.Hour)
	codec.now = func() time.Time { return issued }
	access, _ := codec.SignAccess("usr_1", "a@x.com", "org_1", "personal")
	codec.now = time.Now

	if _, err := codec.VerifyAccess(access); err == nil {
		t.Fatal("expired token passed verification")
	}

	claims := codec.DecodeUnsafe(access)
	if claims == nil {
		t.Fatal("DecodeUnsafe returned nil for a decodable token")
	}
	if claims.UserID != "usr_1" {
		t.Errorf("expected usr_1, got %s", claims.UserID)
	}

	if codec.DecodeUnsafe("not-a-token") != nil {
		t.Error("DecodeUnsafe returned claims for garbage input")
	}
}

func TestNewCodecInvalidConfig(t *testing.T) {
	_, err := NewCodec(config.JWTConfig{
		Secret:        "a",
		AccessExpiry:  "15minutes",
		RefreshSecret: "b",
		RefreshExpiry: "7d",
	})
	if !errors.Is(err, ErrInvalidExpiry) {
		t.Errorf("expected ErrInvalidExpiry, got %v", err)
	}

	_, err = NewCodec(config.JWTConfig{AccessExpiry: "15m", RefreshExpiry: "7d"})
	if !errors.Is(err, ErrMissingJWTSecret) {
		t.Errorf("expected ErrMissingJWTSecret, got %v", err)
	}
}

func TestCodecSecretsAreIndependent(t *testing.T) {
	codec := newTestCodec(t)
	other, _ := NewCodec(config.JWTConfig{
		Secret:        "different",
		AccessExpiry:  "15m",
		RefreshSecret: "also-different",
		RefreshExpiry: "7d",
	})

	access, _ := codec.SignAccess("usr_1", "a@x.com", "org_1", "personal")
	if _, err := other.VerifyAccess(access); err == nil {
		t.Error("token verified under a different secret")
	}
	if !strings.Contains(access, ".") {
		t.Error("signed token is not in compact JWT form")
	}
}
