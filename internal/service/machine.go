package service

import (
	"fmt"
	"log"
	"sync"
	"time"

	"hostpay/internal/domain"
	"hostpay/internal/models"
)

// TransitionNotifier receives every status change; the websocket hub
// implements it. A nil notifier is fine.
type TransitionNotifier interface {
	NotifyTransition(intent *models.PaymentIntent, previous domain.Status)
}

// UnresolvedEvent is an event that verified and normalized cleanly but
// could not be attributed to exactly one live intent. Kept for audit,
// never silently dropped.
type UnresolvedEvent struct {
	Event      models.PaymentEvent `json:"event"`
	Reason     string              `json:"reason"`
	RecordedAt time.Time           `json:"recorded_at"`
}

// ApplyResult describes what one event did to the machine.
type ApplyResult struct {
	Applied    bool
	Duplicate  bool
	Unresolved bool
	Anomaly    bool
	IntentID   string
	Status     domain.Status
	Reason     string
}

// Machine is the authoritative payment-status state machine. It owns the
// in-process intent store, the per-rail seen-sets and the unresolved
// audit trail; all mutation goes through Apply.
type Machine struct {
	mu         sync.RWMutex
	intents    map[string]*models.PaymentIntent
	byRef      map[string][]string // correlation key -> intent ids
	seen       map[domain.Rail]map[string]struct{}
	unresolved []UnresolvedEvent
	activity   []models.PaymentEvent
	notifier   TransitionNotifier
}

func NewMachine(notifier TransitionNotifier) *Machine {
	return &Machine{
		intents:  make(map[string]*models.PaymentIntent),
		byRef:    make(map[string][]string),
		seen:     make(map[domain.Rail]map[string]struct{}),
		notifier: notifier,
	}
}

// Record registers a freshly created intent and its correlation keys.
func (m *Machine) Record(intent *models.PaymentIntent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent.ID] = intent
	m.addRef(intent.ID, intent.ID)
	if intent.CorrelationToken != "" {
		m.addRef(intent.CorrelationToken, intent.ID)
	}
	if intent.DestinationAddress != "" {
		m.addRef(DerivedRef(intent.DestinationAddress, intent.Amount), intent.ID)
	}
}

func (m *Machine) addRef(key, id string) {
	for _, existing := range m.byRef[key] {
		if existing == id {
			return
		}
	}
	m.byRef[key] = append(m.byRef[key], id)
}

// Get returns a copy of the intent, or ErrNotFound.
func (m *Machine) Get(id string) (*models.PaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *intent
	return &out, nil
}

// Apply folds one canonical event into the machine. It is idempotent per
// (rail, event id) and safe to call concurrently; events for different
// intents never block on each other beyond the map access.
func (m *Machine) Apply(ev *models.PaymentEvent) ApplyResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	rail := m.seen[ev.Rail]
	if rail == nil {
		rail = make(map[string]struct{})
		m.seen[ev.Rail] = rail
	}
	if _, dup := rail[ev.EventID]; dup {
		log.Printf("[Machine] duplicate event %s/%s, no-op", ev.Rail, ev.EventID)
		return ApplyResult{Duplicate: true}
	}
	rail[ev.EventID] = struct{}{}

	if ev.Kind == domain.KindActivityObserved {
		// Audit only; never advances a payment.
		m.activity = append(m.activity, *ev)
		return ApplyResult{Applied: true, Reason: "activity recorded"}
	}

	intent, reason := m.resolveLocked(ev)
	if intent == nil {
		m.unresolved = append(m.unresolved, UnresolvedEvent{Event: *ev, Reason: reason, RecordedAt: time.Now()})
		log.Printf("[Machine] unresolved event %s/%s: %s", ev.Rail, ev.EventID, reason)
		return ApplyResult{Unresolved: true, Reason: reason}
	}

	target, ok := domain.KindStatus(ev.Kind)
	if !ok {
		m.unresolved = append(m.unresolved, UnresolvedEvent{Event: *ev, Reason: "no status for kind", RecordedAt: time.Now()})
		return ApplyResult{Unresolved: true, Reason: "no status for kind"}
	}

	previous := intent.Status
	next, changed, anomaly := transition(previous, target)
	if !changed {
		return ApplyResult{IntentID: intent.ID, Status: previous, Anomaly: anomaly,
			Reason: fmt.Sprintf("%s does not advance %s", target, previous)}
	}
	intent.Status = next
	if anomaly {
		log.Printf("[Machine] anomaly: intent %s rescued from %s to %s by %s/%s",
			intent.ID, previous, next, ev.Rail, ev.EventID)
	} else {
		log.Printf("[Machine] intent %s: %s -> %s (%s/%s)", intent.ID, previous, next, ev.Rail, ev.EventID)
	}
	if m.notifier != nil {
		m.notifier.NotifyTransition(intent, previous)
	}
	return ApplyResult{Applied: true, IntentID: intent.ID, Status: next, Anomaly: anomaly}
}

// resolveLocked finds the single live intent an event refers to. Demo
// intents never take part in resolution: they only move via explicit
// local simulation, and they must not shadow a live intent sharing the
// same derived ref.
func (m *Machine) resolveLocked(ev *models.PaymentEvent) (*models.PaymentIntent, string) {
	var live []*models.PaymentIntent
	demoMatched := false
	for _, id := range m.byRef[ev.IntentRef] {
		intent := m.intents[id]
		if intent.IsDemo {
			demoMatched = true
			continue
		}
		live = append(live, intent)
	}
	switch len(live) {
	case 0:
		if demoMatched {
			return nil, "ref resolves to a demo intent"
		}
		return nil, "no intent matches ref"
	case 1:
		return live[0], ""
	}
	return nil, fmt.Sprintf("ambiguous ref matches %d live intents", len(live))
}

// transition applies the forward-only partial order. It reports the next
// status, whether anything changed, and whether the change is the
// documented failed-rescue anomaly.
func transition(current, target domain.Status) (domain.Status, bool, bool) {
	if domain.Terminal(current) {
		return current, false, false
	}
	if current == domain.StatusFailed {
		// Rails occasionally reverse a failure.
		if target == domain.StatusConfirmed || target == domain.StatusResolved {
			return target, true, true
		}
		return current, false, false
	}
	if target == domain.StatusFailed || target == domain.StatusDelayed {
		// Side-annotations: accepted from early states, never regress a
		// more advanced one.
		curRank, _ := domain.Rank(current)
		confirmedRank, _ := domain.Rank(domain.StatusConfirmed)
		if curRank >= confirmedRank {
			return current, false, true
		}
		if current == target {
			return current, false, false
		}
		return target, true, false
	}
	curRank, _ := domain.Rank(current)
	nextRank, _ := domain.Rank(target)
	if nextRank > curRank {
		return target, true, false
	}
	return current, false, false
}

// SimulateDemoCompletion is the only path a demo intent moves on: the
// demo success redirect calls it, standing in for a live confirmation.
func (m *Machine) SimulateDemoCompletion(id string) (*models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !intent.IsDemo {
		return nil, fmt.Errorf("intent %s is not a demo intent", id)
	}
	if domain.Terminal(intent.Status) {
		out := *intent
		return &out, nil
	}
	previous := intent.Status
	intent.Status = domain.StatusConfirmed
	log.Printf("[Machine] demo intent %s simulated: %s -> %s", id, previous, intent.Status)
	if m.notifier != nil {
		m.notifier.NotifyTransition(intent, previous)
	}
	out := *intent
	return &out, nil
}

// Unresolved returns the audit trail of unattributable events.
func (m *Machine) Unresolved() []UnresolvedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]UnresolvedEvent, len(m.unresolved))
	copy(out, m.unresolved)
	return out
}

// Activity returns observed wallet-activity events (audit only).
func (m *Machine) Activity() []models.PaymentEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.PaymentEvent, len(m.activity))
	copy(out, m.activity)
	return out
}
