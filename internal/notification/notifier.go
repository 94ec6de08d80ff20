package notification

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// Notifier receives committed membership events. Delivery is fire-and-forget
// from the caller's point of view: the authoritative write has already
// happened and nothing here can roll it back.
type Notifier interface {
	Notify(ctx context.Context, events ...Event)
}

// Dispatcher fans an event out to the in-app feed, email, and push. Each
// channel is best-effort and failures are logged, never returned.
type Dispatcher struct {
	feed    *Service
	email   EmailSender
	push    PushSender
	devices DeviceTokenSource
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given delivery channels. Any
// channel may be nil, in which case it is skipped.
func NewDispatcher(feed *Service, email EmailSender, push PushSender, devices DeviceTokenSource, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		feed:    feed,
		email:   email,
		push:    push,
		devices: devices,
		log:     log,
	}
}

// Notify delivers the events asynchronously. The passed context's values are
// kept but its cancellation is not: delivery outlives the request that
// triggered the transition.
func (d *Dispatcher) Notify(ctx context.Context, events ...Event) {
	detached := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, event := range events {
			d.deliver(detached, event)
		}
	}()
}

// Wait blocks until in-flight deliveries finish. Used on shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	d.deliverFeed(ctx, event)
	d.deliverEmail(ctx, event)
	d.deliverPush(ctx, event)
}

func (d *Dispatcher) deliverFeed(ctx context.Context, event Event) {
	if d.feed == nil {
		return
	}

	entityType := "GROUP"
	message := event.Message()

	for _, recipientID := range event.Recipients {
		if _, err := d.feed.Create(ctx, recipientID, message, &entityType, &event.GroupID); err != nil {
			d.log.Warn().Err(err).
				Str("kind", string(event.Kind)).
				Int64("recipient", recipientID).
				Msg("feed notification failed")
		}
	}
}

func (d *Dispatcher) deliverEmail(ctx context.Context, event Event) {
	if d.email == nil || event.Kind != KindInvitationSent || event.Email == "" {
		return
	}

	subject := fmt.Sprintf("You're invited to %s", event.GroupName)
	vars := map[string]string{
		"group_name":   event.GroupName,
		"inviter_name": event.ActorName,
		"invite_link":  event.Link,
	}

	if err := d.email.SendTemplated(ctx, event.Email, subject, TemplateGroupInvitation, vars); err != nil {
		d.log.Warn().Err(err).
			Str("to", event.Email).
			Msg("invitation email failed")
	}
}

func (d *Dispatcher) deliverPush(ctx context.Context, event Event) {
	if d.push == nil || d.devices == nil || len(event.Recipients) == 0 {
		return
	}

	tokens, err := d.devices.TokensForUsers(ctx, event.Recipients)
	if err != nil {
		d.log.Warn().Err(err).Msg("device token lookup failed")
		return
	}
	if len(tokens) == 0 {
		return
	}

	data := map[string]string{
		"kind":     string(event.Kind),
		"group_id": strconv.FormatInt(event.GroupID, 10),
	}

	if _, err := d.push.SendMulticast(ctx, tokens, event.Title(), event.Message(), data); err != nil {
		d.log.Warn().Err(err).
			Str("kind", string(event.Kind)).
			Msg("push delivery failed")
	}
}
