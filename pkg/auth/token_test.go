package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/paytm-adapter/pkg/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: "secret", JWTIssuer: "paytm-adapter"}
}

func TestMintAndParseServiceToken(t *testing.T) {
	cfg := testAuthConfig()
	now := time.Now().UTC()

	token, err := MintServiceToken(cfg, now, "checkout", 30*time.Minute, "payments:write")
	if err != nil {
		t.Fatalf("mint service token: %v", err)
	}

	claims, err := ParseServiceToken(cfg, token)
	if err != nil {
		t.Fatalf("parse service token: %v", err)
	}
	if claims.Subject != "checkout" {
		t.Fatalf("expected subject checkout, got %s", claims.Subject)
	}
	if claims.Issuer != cfg.JWTIssuer {
		t.Fatalf("expected issuer %s, got %s", cfg.JWTIssuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti")
	}
	if !claims.HasScope("payments:write") || claims.HasScope("payments:admin") {
		t.Fatalf("unexpected scopes %v", claims.Scopes)
	}

	exp := now.Add(30 * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.UTC())
	}
}

func TestParseServiceTokenRejects(t *testing.T) {
	cfg := testAuthConfig()
	valid, err := MintServiceToken(cfg, time.Now(), "checkout", time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	expired, err := MintServiceToken(cfg, time.Now().Add(-time.Hour), "checkout", time.Minute)
	if err != nil {
		t.Fatalf("mint expired: %v", err)
	}
	otherIssuer, err := MintServiceToken(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "someone-else"}, time.Now(), "checkout", time.Minute)
	if err != nil {
		t.Fatalf("mint other issuer: %v", err)
	}

	cases := []struct {
		name  string
		token string
		want  string
	}{
		{name: "bad signature", token: valid + "x"},
		{name: "expired", token: expired, want: "expired"},
		{name: "issuer", token: otherIssuer},
		{name: "garbage", token: "not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseServiceToken(cfg, tc.token)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != "" && !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMintServiceTokenValidation(t *testing.T) {
	cfg := testAuthConfig()
	if _, err := MintServiceToken(cfg, time.Now(), "", time.Minute); err == nil {
		t.Fatal("expected subject error")
	}
	if _, err := MintServiceToken(cfg, time.Now(), "checkout", 0); err == nil {
		t.Fatal("expected ttl error")
	}
	if _, err := MintServiceToken(config.AuthConfig{JWTIssuer: "x"}, time.Now(), "checkout", time.Minute); err == nil {
		t.Fatal("expected secret error")
	}
}

func TestHasScopeWithoutScopesGrantsAll(t *testing.T) {
	claims := &ServiceTokenClaims{}
	if !claims.HasScope("anything") {
		t.Fatal("expected unscoped token to grant scope")
	}
	var nilClaims *ServiceTokenClaims
	if nilClaims.HasScope("anything") {
		t.Fatal("nil claims must not grant scope")
	}
}
