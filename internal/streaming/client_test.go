package streaming

import (
	"testing"
	"time"
)

func TestDisconnectHealth_NeverConnectedIsUnhealthy(t *testing.T) {
	if err := disconnectHealth(0, time.Second, 0); err == nil {
		t.Fatal("expected an error when the client has never connected")
	}
}

func TestDisconnectHealth_WithinGraceIsHealthy(t *testing.T) {
	since := time.Now().Add(-500 * time.Millisecond).UnixNano()
	if err := disconnectHealth(since, 2*time.Second, 3); err != nil {
		t.Fatalf("expected a recent disconnect within grace to be healthy, got: %v", err)
	}
}

func TestDisconnectHealth_PastGraceIsUnhealthy(t *testing.T) {
	since := time.Now().Add(-10 * time.Second).UnixNano()
	if err := disconnectHealth(since, time.Second, 5); err == nil {
		t.Fatal("expected a long-standing disconnect to be reported unhealthy")
	}
}
