package result

import (
	"errors"
	"testing"
)

func TestConstructorsArePredicateExclusive(t *testing.T) {
	tests := []struct {
		name      string
		r         Result[int, error, string]
		success   bool
		failure   bool
		interrupt bool
		kind      Kind
	}{
		{"success", Success[int, error, string](7), true, false, false, KindSuccess},
		{"failure", Failure[int, error, string](errors.New("nope")), false, true, false, KindFailure},
		{"interrupt", Interrupt[int, error, string]("stop"), false, false, true, KindInterrupt},
		{"zero value", Result[int, error, string]{}, false, false, false, KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
			if got := tt.r.IsFailure(); got != tt.failure {
				t.Errorf("IsFailure() = %v, want %v", got, tt.failure)
			}
			if got := tt.r.IsInterrupt(); got != tt.interrupt {
				t.Errorf("IsInterrupt() = %v, want %v", got, tt.interrupt)
			}
			if got := tt.r.Kind(); got != tt.kind {
				t.Errorf("Kind() = %v, want %v", got, tt.kind)
			}
			if got := tt.r.Valid(); got != (tt.kind != KindInvalid) {
				t.Errorf("Valid() = %v", got)
			}
		})
	}
}

func TestAccessorsReturnOnlyTheirPayload(t *testing.T) {
	r := Success[int, error, string](42)
	if v, ok := r.Value(); !ok || v != 42 {
		t.Fatalf("Value() = %v, %v", v, ok)
	}
	if _, ok := r.Err(); ok {
		t.Error("Err() reported a failure on a success")
	}
	if _, ok := r.Interruption(); ok {
		t.Error("Interruption() reported an interrupt on a success")
	}

	boom := errors.New("boom")
	f := Failure[int, error, string](boom)
	if err, ok := f.Err(); !ok || err != boom {
		t.Fatalf("Err() = %v, %v", err, ok)
	}

	i := Interrupt[int, error, string]("preflight")
	if v, ok := i.Interruption(); !ok || v != "preflight" {
		t.Fatalf("Interruption() = %v, %v", v, ok)
	}
}

func TestSwitch(t *testing.T) {
	name := func(r Result[int, error, string]) string {
		return Switch(r,
			func(int) string { return "s" },
			func(error) string { return "f" },
			func(string) string { return "i" },
		)
	}

	if got := name(Success[int, error, string](1)); got != "s" {
		t.Errorf("success went to %q", got)
	}
	if got := name(Failure[int, error, string](nil)); got != "f" {
		t.Errorf("failure went to %q", got)
	}
	if got := name(Interrupt[int, error, string]("x")); got != "i" {
		t.Errorf("interrupt went to %q", got)
	}
	if got := name(Result[int, error, string]{}); got != "f" {
		t.Errorf("invalid went to %q", got)
	}
}

func TestMapSuccessKeepsTag(t *testing.T) {
	double := func(v int) int { return v * 2 }

	if v, _ := MapSuccess(Success[int, error, string](4), double).Value(); v != 8 {
		t.Errorf("mapped value = %d, want 8", v)
	}
	if !MapSuccess(Failure[int, error, string](errors.New("x")), double).IsFailure() {
		t.Error("failure changed tag")
	}
	if !MapSuccess(Interrupt[int, error, string]("x"), double).IsInterrupt() {
		t.Error("interrupt changed tag")
	}
	if MapSuccess(Result[int, error, string]{}, double).Valid() {
		t.Error("invalid result became valid")
	}
}
