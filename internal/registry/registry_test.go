package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/pingmedaddy/pingmedaddy/internal/core"
)

// These cover the validation short-circuits that return before the
// registry ever touches the database, so they run without a Postgres
// instance. CRUD against a real *gorm.DB is not covered by the tests
// in this package.

func TestCreateTarget_RejectsInvalidIP(t *testing.T) {
	r := &Registry{}
	_, err := r.CreateTarget(context.Background(), "not-an-ip", 5, "", "")
	if !errors.Is(err, core.ErrInvalidIP) {
		t.Fatalf("expected ErrInvalidIP, got %v", err)
	}
}

func TestCreateTarget_RejectsOutOfRangeFrequency(t *testing.T) {
	r := &Registry{}
	_, err := r.CreateTarget(context.Background(), "10.0.0.1", 0, "", "")
	if !errors.Is(err, core.ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}

	_, err = r.CreateTarget(context.Background(), "10.0.0.1", maxFrequencySeconds+1, "", "")
	if !errors.Is(err, core.ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}
