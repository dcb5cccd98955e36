package db

import "time"

type PrintJob struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Copies       int       `json:"copies"`
	Delivered    int       `json:"delivered"`
	Target       string    `json:"target,omitempty"`
	Attempts     int       `json:"attempts"`
	ErrorMessage string    `json:"error,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

type JobFilter struct {
	Kind   string
	Status string
	Limit  int
	Offset int
}

type PrintCounter struct {
	Date     string `json:"date"`
	Kind     string `json:"kind"`
	Jobs     int64  `json:"jobs"`
	Copies   int64  `json:"copies"`
	Failures int64  `json:"failures"`
}

type JobStats struct {
	Total     int64            `json:"total"`
	Delivered int64            `json:"delivered"`
	Failed    int64            `json:"failed"`
	Copies    int64            `json:"copies"`
	ByKind    map[string]int64 `json:"by_kind"`
	Today     []PrintCounter   `json:"today"`
}
