package models

// VerifyReport holds the integrity checks run over the stored catalog.
type VerifyReport struct {
	GameCount    int
	TagCount     int
	PrefixCount  int
	Samples      []SampleGame
	BadPrefixes  []*Game
	BadTags      []*Game
	DetailCount  int
	MissingCount int
}

// SampleGame is one game shown in the report together with the
// reference names its ids resolved to.
type SampleGame struct {
	Game            *Game
	PrefixNames     []string
	TagNames        []string
	MissingPrefixes int
	MissingTags     int
}

// ExportedGame is the export shape: ids replaced by reference names.
type ExportedGame struct {
	ThreadID  int64    `json:"threadId"`
	Title     string   `json:"title"`
	Creator   string   `json:"creator"`
	Version   string   `json:"version"`
	Views     int64    `json:"views"`
	Likes     int64    `json:"likes"`
	Prefixes  []string `json:"prefixes"`
	Tags      []string `json:"tags"`
	Rating    float64  `json:"rating"`
	Cover     string   `json:"cover"`
	Screens   []string `json:"screens"`
	Timestamp string   `json:"timestamp"`
	Watched   bool     `json:"watched"`
	Ignored   bool     `json:"ignored"`
	IsNew     bool     `json:"isNew"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}
