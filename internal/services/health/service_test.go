package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatusWithoutChecks(t *testing.T) {
	report := NewService(nil).Status(context.Background())
	if !report.OK || report.Components != nil {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestStatusReportsFailingComponent(t *testing.T) {
	svc := NewService(map[string]Checker{
		"db":    CheckFunc(func(context.Context) error { return nil }),
		"redis": CheckFunc(func(context.Context) error { return errors.New("refused") }),
		"skip":  nil,
	})
	report := svc.Status(context.Background())
	if report.OK {
		t.Fatal("expected not ok")
	}
	if report.Components["db"] != "up" || report.Components["redis"] != "down" {
		t.Fatalf("unexpected components %v", report.Components)
	}
	if _, ok := report.Components["skip"]; ok {
		t.Fatal("nil checker must be skipped")
	}
}
