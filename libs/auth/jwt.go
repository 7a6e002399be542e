package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// Claims is the session payload. Sub is the profile id.
type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
}

func (c Claims) IsAdmin() bool { return c.Role == RoleAdmin }

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue signs a token for the profile, stamping iat and exp.
func (s *Signer) Issue(sub, email, role string) (string, Claims, error) {
	now := s.now()
	claims := Claims{
		Sub:   sub,
		Email: email,
		Role:  role,
		Iat:   now.Unix(),
		Exp:   now.Add(s.ttl).Unix(),
	}
	token, err := SignHS256(claims, s.secret)
	return token, claims, err
}

func (s *Signer) Verify(token string) (*Claims, error) {
	claims, err := ParseAndVerifyHS256(token, s.secret)
	if err != nil {
		return nil, err
	}
	if claims.Exp > 0 && s.now().Unix() > claims.Exp {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func SignHS256(claims Claims, secret []byte) (string, error) {
	headerJSON, err := json.Marshal(header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	unsigned := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(payloadJSON)
	return unsigned + "." + hmacSHA256(unsigned, secret), nil
}

// ParseAndVerifyHS256 checks the algorithm and signature and decodes the
// claims. Expiry is left to the caller.
func ParseAndVerifyHS256(token string, secret []byte) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	rawHeader, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var h header
	if err := json.Unmarshal(rawHeader, &h); err != nil || h.Alg != "HS256" {
		return nil, ErrInvalidToken
	}

	unsigned := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(hmacSHA256(unsigned, secret))) {
		return nil, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Sub == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func hmacSHA256(data string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
