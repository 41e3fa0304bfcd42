package model

// FetchResult is what one run against the listing API produced.
type FetchResult struct {
	Hackathons  []Hackathon
	TotalPages  int
	FailedPages []int
	Duplicates  int
}
