package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassification(t *testing.T) {
	base := errors.New("device disconnected")

	testCases := []struct {
		name      string
		err       error
		rejected  bool
		transient bool
		fatal     bool
	}{
		{"config", NewConfigError("bad range %d", 42), true, false, false},
		{"wrapped config", fmt.Errorf("resolving: %w", NewConfigError("bad")), true, false, false},
		{"transient", Transient(base), false, true, false},
		{"fatal", Fatal(base), false, false, true},
		{"fatal over transient", Fatal(Transient(base)), false, false, true},
		{"plain", base, false, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errors.Is(tc.err, ErrConfigurationRejected); got != tc.rejected {
				t.Errorf("rejected: expected %v, got %v", tc.rejected, got)
			}
			if got := IsTransient(tc.err); got != tc.transient {
				t.Errorf("transient: expected %v, got %v", tc.transient, got)
			}
			if got := errors.Is(tc.err, ErrFatal); got != tc.fatal {
				t.Errorf("fatal: expected %v, got %v", tc.fatal, got)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
	if Fatal(nil) != nil {
		t.Error("Fatal(nil) should be nil")
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	base := errors.New("io timeout")
	if !errors.Is(Fatal(base), base) {
		t.Error("fatal error should unwrap to its cause")
	}
	if Transient(base).Error() != base.Error() {
		t.Errorf("expected message %q, got %q", base.Error(), Transient(base).Error())
	}
}
