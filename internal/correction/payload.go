package correction

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Payload is the sealed set of proposed entity values. Each entity type
// has exactly one payload type; storage dispatches on the concrete type.
type Payload interface {
	EntityType() EntityType
	Validate() error
}

// DateWithPrecision is a date known only to some granularity. Precision
// never appears without a value; an absent date is a nil pointer.
type DateWithPrecision struct {
	Value     string `json:"value" validate:"required,datetime=2006-01-02"`
	Precision string `json:"precision" validate:"required,oneof=Day Month Year"`
}

// Location is null when all three parts are absent.
type Location struct {
	Country  *string `json:"country"`
	Province *string `json:"province"`
	City     *string `json:"city"`
}

// Empty reports whether the location carries no information at all.
func (l *Location) Empty() bool {
	return l == nil || (l.Country == nil && l.Province == nil && l.City == nil)
}

type LocalizedName struct {
	LanguageID int64  `json:"language_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
}

type LocalizedTitle struct {
	LanguageID int64  `json:"language_id" validate:"required"`
	Title      string `json:"title" validate:"required"`
}

type Tenure struct {
	JoinYear  *int16 `json:"join_year"`
	LeaveYear *int16 `json:"leave_year"`
}

type Membership struct {
	ArtistID int64    `json:"artist_id" validate:"required"`
	Roles    []int64  `json:"roles"`
	Tenures  []Tenure `json:"tenures" validate:"dive"`
}

type NewArtist struct {
	Name            string             `json:"name" validate:"required"`
	ArtistType      string             `json:"artist_type" validate:"required,oneof=Solo Group Other Unknown"`
	TextAlias       []string           `json:"text_alias"`
	StartDate       *DateWithPrecision `json:"start_date"`
	EndDate         *DateWithPrecision `json:"end_date"`
	StartLocation   *Location          `json:"start_location"`
	CurrentLocation *Location          `json:"current_location"`
	Links           []string           `json:"links" validate:"dive,url"`
	Aliases         []int64            `json:"aliases"`
	LocalizedNames  []LocalizedName    `json:"localized_names" validate:"dive"`
	Memberships     []Membership       `json:"memberships" validate:"dive"`
}

func (p *NewArtist) EntityType() EntityType { return EntityArtist }

func (p *NewArtist) Validate() error {
	if err := validate.Struct(p); err != nil {
		return wrapValidator(err)
	}
	return validateDateRange("end_date", p.StartDate, p.EndDate)
}

type NewLabel struct {
	Name           string             `json:"name" validate:"required"`
	FoundedDate    *DateWithPrecision `json:"founded_date"`
	DissolvedDate  *DateWithPrecision `json:"dissolved_date"`
	Founders       []int64            `json:"founders"`
	LocalizedNames []LocalizedName    `json:"localized_names" validate:"dive"`
}

func (p *NewLabel) EntityType() EntityType { return EntityLabel }

func (p *NewLabel) Validate() error {
	if err := validate.Struct(p); err != nil {
		return wrapValidator(err)
	}
	return validateDateRange("dissolved_date", p.FoundedDate, p.DissolvedDate)
}

type ReleaseCredit struct {
	ArtistID int64   `json:"artist_id" validate:"required"`
	RoleID   int64   `json:"role_id" validate:"required"`
	On       []int64 `json:"on"`
}

type NewTrack struct {
	SongID       int64   `json:"song_id" validate:"required"`
	TrackNumber  *string `json:"track_number"`
	DisplayTitle *string `json:"display_title"`
	Duration     *int32  `json:"duration"`
	Artists      []int64 `json:"artists"`
}

type NewDisc struct {
	Name   *string    `json:"name"`
	Tracks []NewTrack `json:"tracks" validate:"dive"`
}

type NewRelease struct {
	Title              string             `json:"title" validate:"required"`
	ReleaseType        string             `json:"release_type" validate:"required,oneof=Album Ep Single Compilation Demo Other"`
	ReleaseDate        *DateWithPrecision `json:"release_date"`
	RecordingDateStart *DateWithPrecision `json:"recording_date_start"`
	RecordingDateEnd   *DateWithPrecision `json:"recording_date_end"`
	Artists            []int64            `json:"artists"`
	Credits            []ReleaseCredit    `json:"credits" validate:"dive"`
	LocalizedTitles    []LocalizedTitle   `json:"localized_titles" validate:"dive"`
	CatalogNumbers     []string           `json:"catalog_numbers"`
	Events             []int64            `json:"events"`
	Discs              []NewDisc          `json:"discs" validate:"dive"`
}

func (p *NewRelease) EntityType() EntityType { return EntityRelease }

func (p *NewRelease) Validate() error {
	if err := validate.Struct(p); err != nil {
		return wrapValidator(err)
	}
	return validateDateRange("recording_date_end", p.RecordingDateStart, p.RecordingDateEnd)
}

type SongCredit struct {
	ArtistID int64 `json:"artist_id" validate:"required"`
	RoleID   int64 `json:"role_id" validate:"required"`
}

type NewSong struct {
	Title           string           `json:"title" validate:"required"`
	Artists         []int64          `json:"artists"`
	Credits         []SongCredit     `json:"credits" validate:"dive"`
	LocalizedTitles []LocalizedTitle `json:"localized_titles" validate:"dive"`
	Languages       []int64          `json:"languages"`
}

func (p *NewSong) EntityType() EntityType { return EntitySong }

func (p *NewSong) Validate() error {
	return wrapValidator(validate.Struct(p))
}

type TagRelation struct {
	RelatedTagID int64  `json:"related_tag_id" validate:"required"`
	Type         string `json:"type" validate:"required"`
}

type NewTag struct {
	Name             string        `json:"name" validate:"required"`
	Type             string        `json:"type" validate:"required,oneof=Genre Scene Movement Style Other"`
	ShortDescription *string       `json:"short_description"`
	Description      *string       `json:"description"`
	AlternativeNames []string      `json:"alternative_names"`
	Relations        []TagRelation `json:"relations" validate:"dive"`
}

func (p *NewTag) EntityType() EntityType { return EntityTag }

func (p *NewTag) Validate() error {
	return wrapValidator(validate.Struct(p))
}

type NewEvent struct {
	Name             string             `json:"name" validate:"required"`
	ShortDescription *string            `json:"short_description"`
	Description      *string            `json:"description"`
	Location         *Location          `json:"location"`
	StartDate        *DateWithPrecision `json:"start_date"`
	EndDate          *DateWithPrecision `json:"end_date"`
	AlternativeNames []string           `json:"alternative_names"`
}

func (p *NewEvent) EntityType() EntityType { return EntityEvent }

func (p *NewEvent) Validate() error {
	if err := validate.Struct(p); err != nil {
		return wrapValidator(err)
	}
	return validateDateRange("end_date", p.StartDate, p.EndDate)
}

type NewSongLyrics struct {
	SongID     int64  `json:"song_id" validate:"required"`
	LanguageID int64  `json:"language_id" validate:"required"`
	Content    string `json:"content" validate:"required"`
	IsMain     bool   `json:"is_main"`
}

func (p *NewSongLyrics) EntityType() EntityType { return EntitySongLyrics }

func (p *NewSongLyrics) Validate() error {
	return wrapValidator(validate.Struct(p))
}

type NewCreditRole struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	Inherits    []int64 `json:"inherits"`
}

func (p *NewCreditRole) EntityType() EntityType { return EntityCreditRole }

func (p *NewCreditRole) Validate() error {
	return wrapValidator(validate.Struct(p))
}

// validateDateRange enforces that an end date is strictly later than its
// start date, and that an end date never appears without a start date.
// ISO dates compare correctly as strings.
func validateDateRange(field string, start, end *DateWithPrecision) error {
	if end == nil {
		return nil
	}
	if start == nil {
		return &ValidationError{Field: field, Reason: "requires a start date when provided"}
	}
	if end.Value <= start.Value {
		return &ValidationError{Field: field, Reason: "must be later than the start date"}
	}
	return nil
}

func wrapValidator(err error) error {
	if err == nil {
		return nil
	}
	if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
		first := fieldErrors[0]
		return &ValidationError{Field: first.Namespace(), Reason: "failed rule " + first.Tag()}
	}
	return &ValidationError{Reason: err.Error()}
}
