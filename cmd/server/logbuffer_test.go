package main

import (
	"fmt"
	"log"
	"strings"
	"testing"
)

func TestLogBuffer_KeepsMostRecent(t *testing.T) {
	lb := NewLogBuffer(3)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(lb, "line %d\n", i)
	}

	logs := lb.GetLogs()
	if len(logs) != 3 || logs[0] != "line 3\n" || logs[2] != "line 5\n" {
		t.Errorf("logs = %q", logs)
	}

	logs[0] = "mutated"
	if lb.GetLogs()[0] != "line 3\n" {
		t.Error("GetLogs returned shared storage")
	}
}

func TestLogBuffer_AsLogOutput(t *testing.T) {
	lb := NewLogBuffer(0)
	l := log.New(lb, "", 0)
	l.Printf("Worker %d: Processing job %s", 1, "job_x")

	logs := lb.GetLogs()
	if len(logs) != 1 || !strings.Contains(logs[0], "Processing job job_x") {
		t.Errorf("logs = %q", logs)
	}
}
