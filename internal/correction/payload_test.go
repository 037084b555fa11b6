package correction

import (
	"errors"
	"testing"
)

func TestParseEntityType(t *testing.T) {
	cases := []struct {
		in   string
		want EntityType
		ok   bool
	}{
		{in: "artist", want: EntityArtist, ok: true},
		{in: "song-lyrics", want: EntitySongLyrics, ok: true},
		{in: "song_lyrics", want: EntitySongLyrics, ok: true},
		{in: "credit-role", want: EntityCreditRole, ok: true},
		{in: "album", ok: false},
		{in: "", ok: false},
	}
	for _, tc := range cases {
		got, err := ParseEntityType(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("ParseEntityType(%q) error = %v, want ok=%v", tc.in, err, tc.ok)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("ParseEntityType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPayloadEntityTypesAreDistinct(t *testing.T) {
	payloads := []Payload{
		&NewArtist{}, &NewLabel{}, &NewRelease{}, &NewSong{},
		&NewTag{}, &NewEvent{}, &NewSongLyrics{}, &NewCreditRole{},
	}
	seen := make(map[EntityType]bool)
	for _, p := range payloads {
		et := p.EntityType()
		if seen[et] {
			t.Fatalf("duplicate entity type %q", et)
		}
		seen[et] = true
	}
	if len(seen) != len(EntityTypes) {
		t.Fatalf("payloads cover %d types, enumeration has %d", len(seen), len(EntityTypes))
	}
}

func TestArtistValidationDateOrder(t *testing.T) {
	artist := &NewArtist{
		Name:       "Ride",
		ArtistType: "Group",
		StartDate:  &DateWithPrecision{Value: "1996-01-01", Precision: "Year"},
		EndDate:    &DateWithPrecision{Value: "1988-01-01", Precision: "Year"},
	}
	err := artist.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	artist.EndDate = &DateWithPrecision{Value: "1996-01-02", Precision: "Day"}
	if err := artist.Validate(); err != nil {
		t.Fatalf("valid artist rejected: %v", err)
	}
}

func TestEndDateRequiresStartDate(t *testing.T) {
	event := &NewEvent{
		Name:    "Reading Festival",
		EndDate: &DateWithPrecision{Value: "1992-08-30", Precision: "Day"},
	}
	var verr *ValidationError
	if !errors.As(event.Validate(), &verr) {
		t.Fatal("end date without start date must fail validation")
	}
}

func TestSongLyricsValidation(t *testing.T) {
	lyrics := &NewSongLyrics{SongID: 1, LanguageID: 2}
	var verr *ValidationError
	if !errors.As(lyrics.Validate(), &verr) {
		t.Fatal("empty content must fail validation")
	}

	lyrics.Content = "words"
	if err := lyrics.Validate(); err != nil {
		t.Fatalf("valid lyrics rejected: %v", err)
	}
}

func TestReleaseTypeEnum(t *testing.T) {
	release := &NewRelease{Title: "Nowhere", ReleaseType: "Mixtape"}
	var verr *ValidationError
	if !errors.As(release.Validate(), &verr) {
		t.Fatal("unknown release type must fail validation")
	}

	release.ReleaseType = "Album"
	if err := release.Validate(); err != nil {
		t.Fatalf("valid release rejected: %v", err)
	}
}
