package capture

import (
	"testing"
	"time"
)

func TestPolicyForMobile(t *testing.T) {
	p := PolicyFor(ProfileMobile)
	if p.MaxRetries != 5 {
		t.Errorf("mobile max retries should be 5, got %d", p.MaxRetries)
	}
	if p.Delay != 300*time.Millisecond {
		t.Errorf("mobile delay should be 300ms, got %v", p.Delay)
	}
}

func TestPolicyForDesktop(t *testing.T) {
	p := PolicyFor(ProfileDesktop)
	if p.MaxRetries != 3 {
		t.Errorf("desktop max retries should be 3, got %d", p.MaxRetries)
	}
	if p.Delay != 100*time.Millisecond {
		t.Errorf("desktop delay should be 100ms, got %v", p.Delay)
	}
}

func TestShouldRestart(t *testing.T) {
	if !shouldRestart(true, false, PermissionGranted, 0, 5) {
		t.Error("should restart when desired, silent, granted and under budget")
	}
	if shouldRestart(false, false, PermissionGranted, 0, 5) {
		t.Error("should not restart when listening is not desired")
	}
	if shouldRestart(true, true, PermissionGranted, 0, 5) {
		t.Error("should not restart while system is speaking")
	}
	if shouldRestart(true, false, PermissionDenied, 0, 5) {
		t.Error("should not restart without granted permission")
	}
	if shouldRestart(true, false, PermissionUnknown, 0, 5) {
		t.Error("should not restart with unknown permission")
	}
	if shouldRestart(true, false, PermissionGranted, 5, 5) {
		t.Error("should not restart once the budget is spent")
	}
}

func TestClassify(t *testing.T) {
	if k := Classify(ErrPermissionDenied); k != KindPermissionDenied {
		t.Errorf("expected permission_denied, got %s", k)
	}
	if k := Classify(ErrDeviceNotFound); k != KindDeviceNotFound {
		t.Errorf("expected device_not_found, got %s", k)
	}
	if k := Classify(ErrEngineActive); k != KindInvalidState {
		t.Errorf("expected invalid_state, got %s", k)
	}
}

func TestErrorKindTaxonomy(t *testing.T) {
	for _, k := range []ErrorKind{KindPermissionDenied, KindDeviceNotFound, KindUnsupported} {
		if !k.Fatal() {
			t.Errorf("%s should be fatal", k)
		}
	}
	for _, k := range []ErrorKind{KindNoSpeech, KindAborted} {
		if !k.Benign() {
			t.Errorf("%s should be benign", k)
		}
	}
	if KindNetwork.Fatal() || KindNetwork.Benign() {
		t.Error("network should be transient: neither fatal nor benign")
	}
}
