package model

import "time"

type Holding struct {
	Ticker string
	Name   string
	Weight float64
}

type Portfolio struct {
	Name     string
	Holdings []Holding
}

type Headline struct {
	ID          int64
	Headline    string
	Detail      string
	URL         string
	Source      string
	Publisher   string
	PublishedAt time.Time
	FetchedAt   time.Time
	Symbols     []string
}
