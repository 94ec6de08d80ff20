package deeplink

import (
	"fmt"
	"net/url"
)

// Builder constructs deep links into the web application
type Builder struct {
	baseURL string
}

// NewBuilder creates a link builder rooted at the application's public URL
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: baseURL}
}

// InviteLink returns the URL an invited user follows to land on their
// invitation. If the base URL is unparseable the plain web root is returned
// so the email still carries something clickable.
func (b *Builder) InviteLink(token string) string {
	u, err := url.Parse(b.baseURL)
	if err != nil || u.Host == "" {
		return b.baseURL
	}

	u.Path = "/invitations/redeem"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	return u.String()
}

// GroupLink returns the URL of a group's page
func (b *Builder) GroupLink(groupID int64) string {
	u, err := url.Parse(b.baseURL)
	if err != nil || u.Host == "" {
		return b.baseURL
	}

	u.Path = fmt.Sprintf("/groups/%d", groupID)

	return u.String()
}
