package utils

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAdmissionTokenRoundTrip(t *testing.T) {
    tok, err := NewAdmissionToken("secret", "session-1", 7, 5*time.Minute)
    require.NoError(t, err)
    require.NotEmpty(t, tok.Token)
    assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), tok.Exp, 2*time.Second)

    sessionID, eventID, err := ParseAdmissionToken("secret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, "session-1", sessionID)
    assert.Equal(t, uint64(7), eventID)
}

func TestParseAdmissionTokenWrongSecret(t *testing.T) {
    tok, err := NewAdmissionToken("secret", "session-1", 7, 5*time.Minute)
    require.NoError(t, err)

    _, _, err = ParseAdmissionToken("other-secret", tok.Token)
    assert.Error(t, err)
}

func TestParseAdmissionTokenExpired(t *testing.T) {
    tok, err := NewAdmissionToken("secret", "session-1", 7, -time.Minute)
    require.NoError(t, err)

    _, _, err = ParseAdmissionToken("secret", tok.Token)
    assert.Error(t, err)
}

func TestParseAdmissionTokenGarbage(t *testing.T) {
    _, _, err := ParseAdmissionToken("secret", "not-a-jwt")
    assert.Error(t, err)
}
