package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordLogin(t *testing.T) {
	before := testutil.ToFloat64(LoginAttempts.WithLabelValues("now_locked"))
	RecordLogin("now_locked")
	RecordLogin("now_locked")
	if got := testutil.ToFloat64(LoginAttempts.WithLabelValues("now_locked")); got != before+2 {
		t.Errorf("now_locked = %v, want %v", got, before+2)
	}
}

func TestRecordRegistration(t *testing.T) {
	before := testutil.ToFloat64(Registrations.WithLabelValues("duplicate"))
	RecordRegistration("duplicate")
	if got := testutil.ToFloat64(Registrations.WithLabelValues("duplicate")); got != before+1 {
		t.Errorf("duplicate = %v, want %v", got, before+1)
	}
}
