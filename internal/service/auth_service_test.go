package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stemsi/exstem-assessment/internal/config"
)

func newTestAuth(secret string) *AuthService {
	return NewAuthService(&config.Config{JWTSecret: secret, JWTExpiry: time.Hour})
}

func TestIssueAndValidateToken(t *testing.T) {
	auth := newTestAuth("s3cret")

	token, err := auth.IssueToken(TokenTypeAdmin, 9, []string{PermAttemptsGrade})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 9 || claims.TokenType != TokenTypeAdmin || claims.Subject != "9" {
		t.Fatalf("claims = %+v", claims)
	}
	if !claims.HasPermission(PermAttemptsGrade) || claims.HasPermission(PermAttemptsReset) {
		t.Fatalf("unexpected permission set: %v", claims.Permissions)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	auth := newTestAuth("s3cret")
	valid, _ := auth.IssueToken(TokenTypeStudent, 1, nil)

	expiredAuth := newTestAuth("s3cret")
	expiredAuth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredAuth.IssueToken(TokenTypeStudent, 1, nil)

	badType, _ := auth.IssueToken(TokenType("proctor"), 1, nil)
	foreign, _ := newTestAuth("other").IssueToken(TokenTypeStudent, 1, nil)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"tampered", valid[:len(valid)-2] + strings.Repeat("x", 2)},
		{"expired", expired},
		{"unknown token type", badType},
		{"wrong secret", foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.ValidateToken(tt.token); err == nil {
				t.Fatal("expected token to be rejected")
			}
		})
	}
}

func TestWildcardPermission(t *testing.T) {
	c := &Claims{Permissions: []string{"*"}}
	if !c.HasPermission(PermExamsRefresh) {
		t.Fatal("wildcard should grant every permission")
	}
	if (&Claims{}).HasPermission(PermExamsRead) {
		t.Fatal("empty permission set granted access")
	}
}
