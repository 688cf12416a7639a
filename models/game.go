package models

import (
	"encoding/json"
	"time"
)

// RawGame is one entry of the listing API's msg.data array, exactly as sent.
type RawGame struct {
	ThreadID int64    `json:"thread_id"`
	Title    string   `json:"title"`
	Creator  string   `json:"creator"`
	Version  string   `json:"version"`
	Views    int64    `json:"views"`
	Likes    int64    `json:"likes"`
	Prefixes []int64  `json:"prefixes"`
	Tags     []int64  `json:"tags"`
	Rating   float64  `json:"rating"`
	Cover    string   `json:"cover"`
	Screens  []string `json:"screens"`
	Date     string   `json:"date"` // relative ("11 mins"); not persisted
	TS       int64    `json:"ts"`
	Watched  bool     `json:"watched"`
	Ignored  bool     `json:"ignored"`
	New      bool     `json:"new"`
}

// ListingEnvelope is the listing API response body. Msg is decoded into
// ListingMsg only once Status is "ok"; error envelopes carry other shapes.
type ListingEnvelope struct {
	Status string          `json:"status"`
	Msg    json.RawMessage `json:"msg"`
}

type ListingMsg struct {
	Data       []RawGame `json:"data"`
	Pagination struct {
		Page  int `json:"page"`
		Total int `json:"total"`
	} `json:"pagination"`
	Count int `json:"count"`
}

// Game is the stored listing row, keyed by ThreadID.
type Game struct {
	ThreadID  int64
	Title     string
	Creator   string
	Version   string
	Views     int64
	Likes     int64
	Prefixes  []int64
	Tags      []int64
	Rating    float64
	Cover     string
	Screens   []string
	Timestamp int64
	Watched   bool
	Ignored   bool
	IsNew     bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ToGame maps the wire record onto the stored shape. IsNew is the remote
// "new" flag passed through untouched.
func (r RawGame) ToGame() *Game {
	return &Game{
		ThreadID:  r.ThreadID,
		Title:     r.Title,
		Creator:   r.Creator,
		Version:   r.Version,
		Views:     r.Views,
		Likes:     r.Likes,
		Prefixes:  r.Prefixes,
		Tags:      r.Tags,
		Rating:    r.Rating,
		Cover:     r.Cover,
		Screens:   r.Screens,
		Timestamp: r.TS,
		Watched:   r.Watched,
		Ignored:   r.Ignored,
		IsNew:     r.New,
	}
}

// ThreadDetail is the parsed first post of a game's thread.
type ThreadDetail struct {
	ThreadID       int64
	Overview       string
	HiddenOverview *string
	OriginalHTML   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Tag and Prefix are reference rows filled by a separate process.
type Tag struct {
	ID   int64
	Name string
}

type Prefix struct {
	ID       int64
	Name     string
	Class    string
	Category string
	Type     string
}

// ListingPage is one decoded page of the listing API. TotalPages comes from
// msg.pagination.total and is only trusted on page 1.
type ListingPage struct {
	Number     int
	TotalPages int
	Records    []RawGame
}
