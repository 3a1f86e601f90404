package session

import (
	"errors"
	"testing"

	"i4.energy/across/atkit/terminal"
)

func TestLostLinkErr(t *testing.T) {
	t.Run("Cause not handled yet", func(t *testing.T) {
		s := &Session{}
		err := s.lostLinkErr()
		if !errors.Is(err, terminal.ErrCommunication) {
			t.Errorf("expected ErrCommunication, got: %v", err)
		}
	})

	t.Run("Cause already stored", func(t *testing.T) {
		cause := errors.New("device unplugged")
		s := &Session{lastErr: cause}
		if err := s.lostLinkErr(); !errors.Is(err, cause) {
			t.Errorf("expected the stored cause, got: %v", err)
		}
	})
}
