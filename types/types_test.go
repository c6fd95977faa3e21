package types

import "testing"

func TestEffectiveLength(t *testing.T) {
	rec := PacketRecord{CapturedLength: 60, OriginalLength: 1500}

	if got := rec.EffectiveLength(false); got != 60 {
		t.Errorf("EffectiveLength(false) = %d, want 60", got)
	}
	if got := rec.EffectiveLength(true); got != 1500 {
		t.Errorf("EffectiveLength(true) = %d, want 1500", got)
	}
}

func TestMultiplier1x(t *testing.T) {
	m := Multiplier1x()
	if m.Kind != SpeedMultiplier {
		t.Fatalf("Kind = %v, want SpeedMultiplier", m.Kind)
	}
	if m.Multiplier != 1.0 {
		t.Errorf("Multiplier = %v, want 1.0", m.Multiplier)
	}
}

func TestErrorFormatting(t *testing.T) {
	plain := NewError(ErrorConfig, "MTU must be > 0, got %d", -1)
	if plain.Error() != "ConfigError: MTU must be > 0, got -1" {
		t.Errorf("plain.Error() = %q", plain.Error())
	}

	cause := NewError(ErrorIO, "short read")
	wrapped := WrapError(ErrorResource, cause, "opening %s", "eth0")
	want := "ResourceError: opening eth0: IoError: short read"
	if wrapped.Error() != want {
		t.Errorf("wrapped.Error() = %q, want %q", wrapped.Error(), want)
	}

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap() did not return the original cause")
	}
}

func TestAccuracyString(t *testing.T) {
	cases := map[Accuracy]string{
		AccuracyAbsoluteTime: "abstime",
		AccuracyGTODSpin:     "gtod",
		AccuracyIOPortSleep:  "ioport",
		Accuracy(99):         "unknown",
	}
	for a, want := range cases {
		if got := a.String(); got != want {
			t.Errorf("Accuracy(%d).String() = %q, want %q", a, got, want)
		}
	}
}
