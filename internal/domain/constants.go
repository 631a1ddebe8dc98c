package domain

// Rail identifies which payment rail an intent or event belongs to.
type Rail string

const (
	RailHostedCharge  Rail = "hosted_charge"
	RailOnramp        Rail = "onramp"
	RailChainTransfer Rail = "chain_transfer"
)

// Status is a payment intent's position in its lifecycle.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusResolved  Status = "RESOLVED"
	StatusDelayed   Status = "DELAYED"
	StatusFailed    Status = "FAILED"
)

// EventKind is the canonical classification of an inbound rail event.
type EventKind string

const (
	KindCreated          EventKind = "created"
	KindPending          EventKind = "pending"
	KindConfirmed        EventKind = "confirmed"
	KindDelayed          EventKind = "delayed"
	KindFailed           EventKind = "failed"
	KindResolved         EventKind = "resolved"
	KindActivityObserved EventKind = "activity_observed"
)

// statusRank orders the forward progression CREATED < PENDING < CONFIRMED < RESOLVED.
// DELAYED is transient and ranks with CREATED so PENDING/CONFIRMED can follow it.
// FAILED is handled explicitly by the state machine and has no rank.
var statusRank = map[Status]int{
	StatusCreated:   0,
	StatusDelayed:   0,
	StatusPending:   1,
	StatusConfirmed: 2,
	StatusResolved:  3,
}

// Rank returns the status position in the forward order, and whether the
// status participates in ordered progression at all.
func Rank(s Status) (int, bool) {
	r, ok := statusRank[s]
	return r, ok
}

// Terminal reports whether no further event may change the status
// (RESOLVED unconditionally; FAILED except for the documented rescue).
func Terminal(s Status) bool {
	return s == StatusResolved
}

// KindStatus maps an event kind to the status it drives toward.
// ActivityObserved has no target status.
func KindStatus(k EventKind) (Status, bool) {
	switch k {
	case KindCreated:
		return StatusCreated, true
	case KindPending:
		return StatusPending, true
	case KindConfirmed:
		return StatusConfirmed, true
	case KindDelayed:
		return StatusDelayed, true
	case KindFailed:
		return StatusFailed, true
	case KindResolved:
		return StatusResolved, true
	}
	return "", false
}

// Subscription event types on the chain-activity feed.
const (
	SubEventERC20Transfer  = "erc20_transfer"
	SubEventWalletActivity = "wallet_activity"
)
