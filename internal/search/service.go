package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to
// Postgres matching.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch
// is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to Postgres.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexArtist indexes an artist (fire-and-forget to Meilisearch).
func (s *Service) IndexArtist(a ArtistRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexArtist(a); err != nil {
			log.Printf("search: index artist %d: %v", a.ID, err)
		}
	}()
}

// IndexRelease indexes a release (fire-and-forget to Meilisearch).
func (s *Service) IndexRelease(r ReleaseRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexRelease(r); err != nil {
			log.Printf("search: index release %d: %v", r.ID, err)
		}
	}()
}

// IndexSong indexes a song (fire-and-forget to Meilisearch).
func (s *Service) IndexSong(song SongRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexSong(song); err != nil {
			log.Printf("search: index song %d: %v", song.ID, err)
		}
	}()
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL
// into Meilisearch. Called during bootstrap.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	artists, releases, songs, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexArtists(artists); err != nil {
		log.Printf("search: reindex artists: %v", err)
	}
	if err := s.meili.IndexReleases(releases); err != nil {
		log.Printf("search: reindex releases: %v", err)
	}
	if err := s.meili.IndexSongs(songs); err != nil {
		log.Printf("search: reindex songs: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
