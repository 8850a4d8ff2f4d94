package connection

import "testing"

func TestConnection_LegalTransitions(t *testing.T) {
	c := New("c1", 4)
	seq := []State{Connected, Initialized, Ready, Closing, Closed}
	for _, to := range seq {
		if err := c.Transition(to); err != nil {
			t.Fatalf("Transition(%s) error = %v", to, err)
		}
	}
	if got := c.State(); got != Closed {
		t.Errorf("final state = %v, want Closed", got)
	}
}

func TestConnection_IllegalTransitionRejected(t *testing.T) {
	c := New("c1", 4)
	if err := c.Transition(Ready); err == nil {
		t.Fatal("Transition(Ready) from Accepted expected error")
	}
}

func TestConnection_AnyStateCanCloseExceptClosed(t *testing.T) {
	for _, from := range []State{Accepted, Connected, Initialized, Ready} {
		c := New("c1", 4)
		// Force state for the test.
		c.state = from
		if err := c.Transition(Closing); err != nil {
			t.Errorf("Transition(Closing) from %s error = %v", from, err)
		}
	}
}

func TestConnection_ClosedIsTerminal(t *testing.T) {
	c := New("c1", 4)
	c.state = Closed
	if err := c.Transition(Connected); err == nil {
		t.Fatal("Transition from Closed expected error")
	}
	if err := c.Transition(Closing); err == nil {
		t.Fatal("Transition(Closing) from Closed expected error")
	}
}

func TestPreInitAllowed(t *testing.T) {
	for _, m := range []string{"initialize", "ping"} {
		if !PreInitAllowed[m] {
			t.Errorf("PreInitAllowed[%q] = false, want true", m)
		}
	}
	if PreInitAllowed["tools/list"] {
		t.Error("PreInitAllowed[tools/list] = true, want false")
	}
}
