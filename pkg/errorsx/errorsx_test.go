package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonTranscodeFailed)
	if Reason(err) != ReasonTranscodeFailed {
		t.Fatalf("expected reason %s, got %s", ReasonTranscodeFailed, Reason(err))
	}
	if !HasReason(err, ReasonTranscodeFailed) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonNoAudioStream)
	second := Wrap(first, ReasonInternal)
	if Reason(second) != ReasonNoAudioStream {
		t.Fatalf("expected leaf reason preserved, got %s", Reason(second))
	}
}

func TestNewCarriesMessage(t *testing.T) {
	err := New(ReasonEntityNotFound, "stt provider %q not found", "stt.missing")
	if Reason(err) != ReasonEntityNotFound {
		t.Fatalf("expected reason %s, got %s", ReasonEntityNotFound, Reason(err))
	}
	want := `stt provider "stt.missing" not found`
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
