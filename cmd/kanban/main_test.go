package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/nhle/kanban-sync/tests/testutil"
)

func TestPrintHierarchy(t *testing.T) {
	var buf bytes.Buffer
	printHierarchy(&buf, testutil.SampleHierarchy(), time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))

	want := `* Work
    Todo (2)
      - Write report [high] due 2026-02-01 (overdue)
      - Review PR [low]
    Done (1)
      - Plan sprint [medium]
  Home
`
	if got := buf.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}
