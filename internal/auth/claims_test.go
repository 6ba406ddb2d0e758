package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing"

func TestGenerateAndParseAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("ops-laptop", RoleOperator, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "ops-laptop" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "ops-laptop")
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Errorf("lifetime = %v, want 1h", got)
	}
}

func TestGenerateAccessToken_DefaultTTL(t *testing.T) {
	token, err := GenerateAccessToken("x", RoleViewer, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != DefaultTokenTTL {
		t.Errorf("lifetime = %v, want %v", got, DefaultTokenTTL)
	}
}

func TestGenerateAccessToken_Errors(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		secret  string
		wantErr error
	}{
		{name: "empty secret", role: RoleAdmin, secret: "", wantErr: ErrNoSecret},
		{name: "unknown role", role: "root", secret: testSecret, wantErr: ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateAccessToken("x", tt.role, tt.secret, time.Minute)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func sign(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return s
}

func TestParseToken_Rejects(t *testing.T) {
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   "x",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	good, err := GenerateAccessToken("x", RoleViewer, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	noSubject := valid
	noSubject.Subject = ""
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "garbage", token: "not-a-valid-jwt", secret: testSecret},
		{name: "wrong secret", token: good, secret: "wrong-secret"},
		{name: "expired", token: sign(t, Claims{RegisteredClaims: expired, Role: RoleViewer}, jwt.SigningMethodHS256, []byte(testSecret)), secret: testSecret},
		{name: "no expiry", token: sign(t, Claims{RegisteredClaims: noExpiry, Role: RoleViewer}, jwt.SigningMethodHS256, []byte(testSecret)), secret: testSecret},
		{name: "missing subject", token: sign(t, Claims{RegisteredClaims: noSubject, Role: RoleViewer}, jwt.SigningMethodHS256, []byte(testSecret)), secret: testSecret},
		{name: "unknown role", token: sign(t, Claims{RegisteredClaims: valid, Role: "root"}, jwt.SigningMethodHS256, []byte(testSecret)), secret: testSecret},
		{name: "wrong algorithm", token: sign(t, Claims{RegisteredClaims: valid, Role: RoleViewer}, jwt.SigningMethodHS512, []byte(testSecret)), secret: testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}

	if _, err := ParseToken(good, ""); !errors.Is(err, ErrNoSecret) {
		t.Errorf("ParseToken() with empty secret error = %v, want ErrNoSecret", err)
	}
}
