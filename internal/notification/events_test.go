package notification

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMessage(t *testing.T) {
	e := Event{
		Kind:      KindInvitationSent,
		GroupName: "trip",
		ActorName: "owner",
	}
	assert.Equal(t, `owner invited you to join group "trip"`, e.Message())

	e = Event{Kind: KindJoinRequest, GroupName: "trip", TargetName: "alice"}
	assert.Equal(t, `alice wants to join "trip"`, e.Message())

	e = Event{Kind: KindSuccessionPromotion, GroupName: "trip", Role: "OWNER"}
	assert.Equal(t, `You are now OWNER of "trip"`, e.Message())
}

func TestEventTitle(t *testing.T) {
	assert.Equal(t, "Group invitation", Event{Kind: KindInvitationSent}.Title())
	assert.Equal(t, "Join request update", Event{Kind: KindAccepted}.Title())
	assert.Equal(t, "Role change", Event{Kind: KindRoleUpdatedGroup}.Title())
}

// countingPush records multicast calls
type countingPush struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPush) SendMulticast(context.Context, []string, string, string, map[string]string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return 1, nil
}

func TestDispatcherDeliversAndWaits(t *testing.T) {
	push := &countingPush{}
	d := NewDispatcher(nil, NewLogEmailSender(zerolog.Nop()), push, staticTokens{"device-1"}, zerolog.Nop())

	d.Notify(context.Background(), Event{
		Kind:       KindInvitationSent,
		GroupName:  "trip",
		Recipients: []int64{2},
		Email:      "alice@test.io",
		Link:       "https://app.test/invitations/redeem?token=x",
	})
	d.Wait()

	push.mu.Lock()
	defer push.mu.Unlock()
	require.Equal(t, 1, push.calls)
}

// staticTokens returns the same device tokens for any user
type staticTokens []string

func (s staticTokens) TokensForUsers(context.Context, []int64) ([]string, error) {
	return s, nil
}
