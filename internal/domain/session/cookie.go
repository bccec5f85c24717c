package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const cookieIssuer = "managerhr"

// CookieSigner binds a browser to a session id through an HS256 token in an
// HttpOnly cookie.
type CookieSigner struct {
	secret []byte
	name   string
	path   string
	ttl    time.Duration
	secure bool
}

func NewCookieSigner(secret []byte, name, path string, ttl time.Duration, secure bool) *CookieSigner {
	if path == "" {
		path = "/"
	}
	return &CookieSigner{secret: secret, name: name, path: path, ttl: ttl, secure: secure}
}

func (c *CookieSigner) Issue(w http.ResponseWriter, sess Session) error {
	expires := sess.ExpiresAt
	if expires.IsZero() {
		expires = time.Now().Add(c.ttl)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sess.ID,
		Issuer:    cookieIssuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    signed,
		Path:     c.path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SessionID returns the id carried by a valid, unexpired cookie.
func (c *CookieSigner) SessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(cookieIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.ID == "" {
		return "", false
	}
	return claims.ID, true
}

func (c *CookieSigner) Expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     c.path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

var ErrNoAccessToken = errors.New("access token missing")

// AccessTokenExpiry reads the exp claim of an upstream access token without
// verifying it; the gateway never holds the upstream signing key.
func AccessTokenExpiry(accessToken string) (time.Time, error) {
	if accessToken == "" {
		return time.Time{}, ErrNoAccessToken
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
