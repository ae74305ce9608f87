package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewUserDisplayName(t *testing.T) {
	cases := []struct {
		name     string
		metadata map[string]interface{}
		want     string
	}{
		{"full name wins", map[string]interface{}{"full_name": "Ada Lovelace", "name": "ada"}, "Ada Lovelace"},
		{"falls back to name", map[string]interface{}{"name": "ada"}, "ada"},
		{"blank full name skipped", map[string]interface{}{"full_name": "  ", "name": "ada"}, "ada"},
		{"non string ignored", map[string]interface{}{"full_name": 42}, ""},
		{"no metadata", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := NewUser("u1", "a@example.com", tc.metadata)
			assert.Equal(t, tc.want, u.Name)
			assert.Equal(t, "u1", u.ID)
		})
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, (&Session{}).Expired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Minute)}).Expired(now))
}
