package models

// ScoreSlice partitions the search result set by Trust Score band
// (spec §4.1, §4.6, GLOSSARY).
type ScoreSlice string

const (
	SliceAll   ScoreSlice = "all"
	SliceElite ScoreSlice = "elite"
	SliceSolid ScoreSlice = "solid"
	SliceWatch ScoreSlice = "watch"
)

// SortOrder is the accepted sort values for search (spec §4.6).
type SortOrder string

const (
	SortTrustDesc  SortOrder = "trust_desc"
	SortRecentDesc SortOrder = "recent_desc"
	SortNameAsc    SortOrder = "name_asc"
)

// SearchQuery is the fully validated, normalized search request (spec §4.6).
type SearchQuery struct {
	Keyword      string
	HasGeo       bool
	Latitude     float64
	Longitude    float64
	RadiusMiles  float64
	Jurisdiction string // "" or "all" means unfiltered
	ScoreSlice   ScoreSlice
	RecentOnly   bool
	Sort         SortOrder
	Page         int
	PageSize     int
}

// SliceCounts reports, for each band partition, the count that would match
// the same query with ScoreSlice swapped to that value (spec §4.6).
type SliceCounts struct {
	All   int `json:"all"`
	Elite int `json:"elite"`
	Solid int `json:"solid"`
	Watch int `json:"watch"`
}

// SearchPage is the result of one search call.
type SearchPage struct {
	Data        []Facility  `json:"data"`
	Count       int         `json:"count"`
	TotalCount  int         `json:"total_count"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	SliceCounts SliceCounts `json:"slice_counts"`
}

// VoteKind is either "like" or "dislike" (spec §3, §4.7).
type VoteKind string

const (
	VoteLike    VoteKind = "like"
	VoteDislike VoteKind = "dislike"
)

// VoteSummary is the updated tally returned after a successful vote
// (spec §4.4, §4.7).
type VoteSummary struct {
	Likes     int `json:"likes"`
	Dislikes  int `json:"dislikes"`
	VoteScore int `json:"vote_score"`
}
