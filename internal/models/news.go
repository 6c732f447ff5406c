package models

import "time"

// NewsRecord is a normalized, tagged competitor news item.
type NewsRecord struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Competitor string    `json:"competitor"`
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	Tag        string    `json:"tag"`
}

// RawNewsDocument is an untagged feed row as stored in Elasticsearch by the worker.
type RawNewsDocument struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Competitor string    `json:"competitor"`
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	IngestedAt time.Time `json:"ingested_at"`
}
