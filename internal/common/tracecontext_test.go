package common

import (
	"errors"
	"testing"
)

func TestStepRecordsDurationAndError(t *testing.T) {
	tc := New("tr_deadbeef")
	err := tc.Step("detect", func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	err = tc.Step("translate", func() error { return boom })
	if err != boom {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(tc.Steps) != 2 {
		t.Fatalf("expected 2 recorded steps, got %d", len(tc.Steps))
	}
	if tc.Steps[1].Err != boom {
		t.Fatal("expected second step to record its error")
	}
}
