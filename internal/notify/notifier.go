// Package notify delivers operator alerts for tokenization milestones over
// one or more channels (Telegram, Discord). Delivery is best-effort and
// never gates a pipeline run or a ledger transaction.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Event types emitted by the tokenization flow.
const (
	EventAssetMinted        = "asset_minted"
	EventTransferConfirmed  = "transfer_confirmed"
	EventVerificationFailed = "verification_failed"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the sender in logs, e.g. "telegram".
	Name() string
}

// Notifier fans a notification out to every registered sender, filtered by
// event type so operators receive only the alerts they subscribed to.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only
// events listed in events are forwarded; an empty list allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers a notification when the event type passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// AssetMinted announces a confirmed mint.
func (n *Notifier) AssetMinted(ctx context.Context, id int64, name, isin string) error {
	return n.Notify(ctx, EventAssetMinted,
		"Asset minted",
		fmt.Sprintf("Asset #%d (%s, isin %s) confirmed on the ledger.", id, name, isin),
	)
}

// TransferConfirmed announces a confirmed token transfer.
func (n *Notifier) TransferConfirmed(ctx context.Context, recipient string, amount int64) error {
	return n.Notify(ctx, EventTransferConfirmed,
		"Transfer confirmed",
		fmt.Sprintf("Transferred %d tokens to %s.", amount, recipient),
	)
}

// VerificationFailed announces a pipeline run that did not pass.
func (n *Notifier) VerificationFailed(ctx context.Context, runID, reason string) error {
	return n.Notify(ctx, EventVerificationFailed,
		"Verification failed",
		fmt.Sprintf("Run %s failed: %s", runID, reason),
	)
}

// dispatch sends to every sender, collecting individual failures so one dead
// channel does not starve the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
