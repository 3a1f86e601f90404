package terminal_test

import (
	"testing"
	"time"

	"i4.energy/across/atkit/terminal"
)

func TestConfig(t *testing.T) {
	t.Run("Zero values fall back to defaults", func(t *testing.T) {
		_, err := terminal.NewConfigBuilder().Build()
		if err != nil {
			t.Errorf("unexpected error from Build(): %v", err)
		}
	})

	t.Run("Negative poll interval is rejected", func(t *testing.T) {
		_, err := terminal.NewConfigBuilder().
			WithPollInterval(-time.Second).
			Build()
		if err == nil {
			t.Error("expected error for negative poll interval")
		}
	})

	t.Run("Negative log limit is rejected", func(t *testing.T) {
		_, err := terminal.NewConfigBuilder().
			WithLogLimit(-1).
			Build()
		if err == nil {
			t.Error("expected error for negative log limit")
		}
	})

	t.Run("Negative read buffer size is rejected", func(t *testing.T) {
		_, err := terminal.NewConfigBuilder().
			WithReadBufferSize(-1).
			Build()
		if err == nil {
			t.Error("expected error for negative read buffer size")
		}
	})
}
