package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultArtist  ResultType = "artist"
	ResultRelease ResultType = "release"
	ResultSong    ResultType = "song"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      int64      `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ArtistRecord is the data we index for an artist.
type ArtistRecord struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	ArtistType string   `json:"artistType"`
	Aliases    []string `json:"aliases"`
}

// ReleaseRecord is the data we index for a release.
type ReleaseRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseType string `json:"releaseType"`
}

// SongRecord is the data we index for a song.
type SongRecord struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
