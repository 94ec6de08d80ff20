package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInviteLink(t *testing.T) {
	b := NewBuilder("https://app.divvy.money")
	assert.Equal(t, "https://app.divvy.money/invitations/redeem?token=abc123", b.InviteLink("abc123"))
}

func TestGroupLink(t *testing.T) {
	b := NewBuilder("https://app.divvy.money")
	assert.Equal(t, "https://app.divvy.money/groups/42", b.GroupLink(42))
}

func TestBadBaseURLFallsBack(t *testing.T) {
	b := NewBuilder("not a url")
	assert.Equal(t, "not a url", b.InviteLink("abc123"))
}
