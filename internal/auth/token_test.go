package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestIssueAndParse(t *testing.T) {
	tok, exp, err := IssueToken("secret", 42, "ace", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("unexpected expiry %v", exp)
	}
	c, err := ParseToken("secret", tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.PlayerID != 42 || c.Nickname != "ace" {
		t.Errorf("unexpected claims %+v", c)
	}
}

func TestParseRejects(t *testing.T) {
	good, _, _ := IssueToken("secret", 1, "a", time.Hour)
	expired, _, _ := IssueToken("secret", 1, "a", -time.Minute)
	noPlayer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"nickname": "x"}).SignedString([]byte("secret"))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"player_id": 1}).SignedString([]byte("secret"))

	cases := map[string]struct{ secret, token string }{
		"wrong secret": {"other", good},
		"expired":      {"secret", expired},
		"no player":    {"secret", noPlayer},
		"wrong alg":    {"secret", hs512},
		"garbage":      {"secret", "not-a-token"},
	}
	for name, tc := range cases {
		if _, err := ParseToken(tc.secret, tc.token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
