package room

// EventKind identifies one kind of inbound live-channel event.
type EventKind int

const (
	// EventUserList replaces the whole presence set with a fresh snapshot.
	EventUserList EventKind = iota

	// EventUserJoined adds a single participant to the presence set.
	EventUserJoined

	// EventUserLeft removes a single participant from the presence set.
	EventUserLeft

	// EventMessage delivers a text message broadcast.
	EventMessage

	// EventProof delivers a proof message broadcast.
	EventProof
)

// Event is the tagged union of everything the live channel can deliver.
// Exactly one payload field is meaningful per Kind; the transport performs no
// deduplication or reordering, so Events must be fed to Store.ApplyInbound in
// arrival order.
type Event struct {
	Kind EventKind

	// Users carries the full online-name list for EventUserList.
	Users []string

	// User carries the joining/leaving display name for EventUserJoined/EventUserLeft.
	User string

	// Message carries the payload for EventMessage and EventProof.
	Message Message
}
