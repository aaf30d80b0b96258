package game

// ScrollItem is the canonical inventory item granted by shiny matches and
// scroll food.
const ScrollItem = "Summoning Scroll"

// EventKind tags the reward events an engine step can emit.
type EventKind int

const (
	EventCurrency EventKind = iota
	EventItem
	EventLeaderboard
)

// Event is emitted by an engine step and later dispatched to the reward
// gateway. Engines never perform I/O; they only describe what is owed.
type Event struct {
	Kind EventKind

	// EventCurrency
	Amount int

	// EventItem
	ItemKind string
	Qty      int

	// EventLeaderboard
	Score int
}

func CurrencyDelta(amount int) Event {
	return Event{Kind: EventCurrency, Amount: amount}
}

func ItemGrant(kind string, qty int) Event {
	return Event{Kind: EventItem, ItemKind: kind, Qty: qty}
}

func LeaderboardPost(score int) Event {
	return Event{Kind: EventLeaderboard, Score: score}
}
