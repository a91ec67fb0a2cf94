package main

import "sync"

const logBufferLines = 1000

// LogBuffer captures the most recent log lines in memory for /logs
type LogBuffer struct {
	lines []string
	max   int
	mu    sync.Mutex
}

func NewLogBuffer(max int) *LogBuffer {
	if max < 1 {
		max = logBufferLines
	}
	return &LogBuffer{
		lines: make([]string, 0, max),
		max:   max,
	}
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))
	if len(lb.lines) > lb.max {
		lb.lines = lb.lines[len(lb.lines)-lb.max:]
	}

	return len(p), nil
}

// GetLogs returns a copy of the buffered lines, oldest first.
func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
