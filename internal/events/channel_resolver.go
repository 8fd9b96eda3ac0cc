package events

import "fmt"

const ChannelAllPayouts = "channel:payouts"

// PayoutChannel is the per-payout channel subscribers can follow.
func PayoutChannel(id string) string {
	return fmt.Sprintf("channel:payout:%s", id)
}

// ResolveChannels returns every channel an envelope is fanned out to.
func ResolveChannels(env Envelope) []string {
	if env.AggregateType != AggregatePayout || env.AggregateID == "" {
		return []string{ChannelAllPayouts}
	}
	return []string{PayoutChannel(env.AggregateID), ChannelAllPayouts}
}
