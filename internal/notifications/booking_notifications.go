package notifications

import (
	"context"
	"errors"
	"fmt"
	"loft/internal/domain/accesscontrol"
	"loft/internal/domain/storage"

	"github.com/9ssi7/exponent"
)

type BookingEvent string

const (
	BookingRequested BookingEvent = "REQUESTED"
	BookingApproved  BookingEvent = "APPROVED"
	BookingDeclined  BookingEvent = "DECLINED"
	BookingPaid      BookingEvent = "PAID"
)

// SendBookingNotification pushes a booking status update to the customer's
// registered devices.
func SendBookingNotification(ctx context.Context, push PushSender, store *storage.Container, userID int64, event BookingEvent, reference string) error {
	tokensMap, err := store.PushTokens.GetTokensByUserIDs(ctx, []int64{userID})
	if err != nil {
		return err
	}
	tokens := dedupe(tokensMap[userID])
	if len(tokens) == 0 {
		return errors.New("no push tokens")
	}

	var title, body string
	switch event {
	case BookingApproved:
		title = "Booking Confirmed"
		body = fmt.Sprintf("Your booking %s has been confirmed! 🎉", reference)
	case BookingDeclined:
		title = "Booking Declined"
		body = fmt.Sprintf("Your booking %s could not be confirmed.", reference)
	case BookingPaid:
		title = "Payment Received"
		body = fmt.Sprintf("We received the payment for booking %s.", reference)
	default:
		title = "Booking Update"
		body = fmt.Sprintf("Your booking %s has an update.", reference)
	}

	msgs := make([]*exponent.Message, 0, len(tokens))
	for _, t := range tokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			// the data field drives deep linking when the notification is tapped
			Data: map[string]string{
				"type":      "booking",
				"event":     string(event),
				"reference": reference,
				"screen":    "my-bookings-screen",
			},
		})
	}

	_, err = push.Publish(ctx, msgs)
	return err
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NotifyStaffOfRequest alerts every user holding a decision role that a new
// booking request is waiting for review.
func NotifyStaffOfRequest(ctx context.Context, push PushSender, store *storage.Container, reference string, eventDate, slot string) error {
	roles := make([]string, 0, len(accesscontrol.DecisionRoles))
	for _, r := range accesscontrol.DecisionRoles {
		roles = append(roles, string(r))
	}

	tokensMap, err := store.PushTokens.GetTokensForRoles(ctx, roles)
	if err != nil {
		return err
	}
	if len(tokensMap) == 0 {
		return nil
	}

	var msgs []*exponent.Message
	for _, tokens := range tokensMap {
		for _, t := range dedupe(tokens) {
			token := exponent.Token(t)
			msgs = append(msgs, &exponent.Message{
				To:    []*exponent.Token{&token},
				Title: "New Booking Request",
				Body:  fmt.Sprintf("%s requested for %s (%s)", reference, eventDate, slot),
				Data: map[string]string{
					"type":      "booking",
					"event":     string(BookingRequested),
					"reference": reference,
					"screen":    "admin-bookings-screen",
				},
			})
		}
	}

	_, err = push.Publish(ctx, msgs)
	return err
}
