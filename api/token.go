package api

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
)

// Refresh this long before actual expiry.
const expiryMargin = 30 * time.Second

type Token struct {
	Access  string
	Refresh string
	Expires time.Time
}

func (lr loginResponse) token(now time.Time) Token {
	return Token{
		Access:  lr.AccessToken,
		Refresh: lr.RefreshToken,
		Expires: now.Add(time.Duration(lr.ExpiresIn) * time.Second),
	}
}

// Expired is false for zero Expires, such token is refreshed only on 401.
func (t Token) Expired(now time.Time) bool {
	return !t.Expires.IsZero() && now.Add(expiryMargin).After(t.Expires)
}

// Save formats three lines: access token, refresh token, unix expiry seconds.
func (t Token) Save() string {
	var exp int64
	if !t.Expires.IsZero() {
		exp = t.Expires.Unix()
	}
	return fmt.Sprintf("%s\n%s\n%d\n", t.Access, t.Refresh, exp)
}

func (t Token) String() string {
	return fmt.Sprintf("Token(access=<secret> refresh=<secret> expires=%s)", t.Expires.Format(time.RFC3339))
}

func ParseToken(saved string) (Token, error) {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(saved))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 3 {
		return Token{}, errors.NotValidf("saved token line count=%d", len(lines))
	}
	exp, err := strconv.ParseInt(strings.TrimSpace(lines[2]), 10, 64)
	if err != nil {
		return Token{}, errors.Annotate(err, "saved token expiry")
	}
	t := Token{Access: lines[0], Refresh: lines[1]}
	if exp != 0 {
		t.Expires = time.Unix(exp, 0)
	}
	return t, nil
}

func (t Token) MarshalBinary() ([]byte, error) { return []byte(t.Save()), nil }

func (t *Token) UnmarshalBinary(b []byte) error {
	x, err := ParseToken(string(b))
	if err != nil {
		return err
	}
	*t = x
	return nil
}
