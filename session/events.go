package session

type EventKind int

const (
	StateChanged EventKind = iota
	BoardChanged
	LogAppended
)

var eventKindNames = map[EventKind]string{
	StateChanged: "StateChanged",
	BoardChanged: "BoardChanged",
	LogAppended:  "LogAppended",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a change notification. Phase and MyTurn describe the session after
// the change; Entry is set for LogAppended.
type Event struct {
	Kind   EventKind `json:"kind"`
	Phase  Phase     `json:"phase"`
	MyTurn bool      `json:"myTurn"`
	Entry  string    `json:"entry,omitempty"`
}

const subscriberBuffer = 64

// Subscribe registers a listener. Events arrive in the order the session
// produced them. A listener that falls behind loses events rather than
// stalling the session. The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	var id int
	if err := s.call(func() error {
		s.nextSubscriber++
		id = s.nextSubscriber
		s.subscribers[id] = ch
		return nil
	}); err != nil {
		close(ch)
		return ch, func() {}
	}

	cancel := func() {
		s.post(func() {
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

func (s *Session) emit(kind EventKind, entry string) {
	event := Event{Kind: kind, Phase: s.phase, MyTurn: s.phase == MyTurn, Entry: entry}
	for id, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			s.logger.Warn("subscriber is full, dropping event", "subscriber", id, "event", kind.String())
		}
	}
}

func (s *Session) closeSubscribers() {
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}
