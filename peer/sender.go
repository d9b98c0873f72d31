package peer

import (
	"fmt"

	"github.com/rhinci/Morskoy-boy/pkg/protocol"
)

//go:generate mockery --name=MessageSender --output=automock --outpkg=automock --case=underscore
type MessageSender interface {
	SendMessage(msg protocol.Message, conn Connection) error
}

// Sender writes one message as a single newline terminated frame.
type Sender struct {
}

func (s *Sender) SendMessage(msg protocol.Message, conn Connection) error {
	frame, err := protocol.Marshal(msg)
	if err != nil {
		return fmt.Errorf("send message: marshal error: %w", err)
	}
	frame = append(frame, delimiter)
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("send message: write error: %w", err)
	}
	return nil
}
