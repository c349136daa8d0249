package utils // package utils provides helper functions for token creation

import (
    "errors" // error values for token validation failures
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AdmissionToken represents a signed JWT handed to a session once the
// waiting room admits it.  Checkout collaborators verify the token instead
// of calling back into the waiting room on every request.  The Token field
// contains the serialized JWT; Exp records when admission lapses, which is
// the active-session TTL.
type AdmissionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAdmissionToken builds and signs an HS256 JWT for an admitted session.
// The JWT carries the session ID as subject (sub), the event ID (evt),
// expiration (exp) and issued-at (iat).
func NewAdmissionToken(secret string, sessionID string, eventID uint64, ttl time.Duration) (AdmissionToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub": sessionID,
        "evt": eventID,
        "exp": exp.Unix(),
        "iat": now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AdmissionToken{}, err
    }
    return AdmissionToken{Token: signed, Exp: exp}, nil
}

// ParseAdmissionToken verifies an admission token and returns the session
// ID and event ID it was minted for.  Expired or tampered tokens return
// an error.
func ParseAdmissionToken(secret, token string) (string, uint64, error) {
    parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, errors.New("unexpected signing method")
        }
        return []byte(secret), nil
    })
    if err != nil || !parsed.Valid {
        return "", 0, errors.New("invalid admission token")
    }
    claims, ok := parsed.Claims.(jwt.MapClaims)
    if !ok {
        return "", 0, errors.New("invalid admission claims")
    }
    sessionID, _ := claims["sub"].(string)
    evtRaw, _ := claims["evt"].(float64)
    if sessionID == "" || evtRaw <= 0 {
        return "", 0, errors.New("incomplete admission claims")
    }
    return sessionID, uint64(evtRaw), nil
}
