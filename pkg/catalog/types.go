package catalog

// GameList is the list-query envelope returned by the catalog API.
type GameList struct {
	Count   int    `json:"count"`
	Next    string `json:"next,omitempty"`
	Results []Game `json:"results"`
}

// Game is a single catalog entry as it appears in list results.
type Game struct {
	ID              int             `json:"id"`
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	Released        string          `json:"released"`
	BackgroundImage string          `json:"background_image"`
	Rating          float64         `json:"rating"`
	RatingTop       int             `json:"rating_top"`
	Metacritic      int             `json:"metacritic"`
	Genres          []Genre         `json:"genres"`
	Platforms       []PlatformEntry `json:"platforms"`
}

// GameDetail is the flat object returned by a details lookup.
type GameDetail struct {
	Game
	Description string `json:"description_raw"`
	Website     string `json:"website"`
	Playtime    int    `json:"playtime"`
}

// PlatformEntry wraps a platform in the nesting the catalog API uses
// inside game objects.
type PlatformEntry struct {
	Platform Platform `json:"platform"`
}

// Platform is a gaming platform (console, OS).
type Platform struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Genre is a game genre.
type Genre struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Screenshot is one image attached to a game.
type Screenshot struct {
	ID    int    `json:"id"`
	Image string `json:"image"`
}

// ScreenshotList is the envelope for a screenshots query.
type ScreenshotList struct {
	Count   int          `json:"count"`
	Results []Screenshot `json:"results"`
}

// GenreList is the envelope for a genres query.
type GenreList struct {
	Count   int     `json:"count"`
	Results []Genre `json:"results"`
}

// PlatformList is the envelope for a platforms query.
type PlatformList struct {
	Count   int        `json:"count"`
	Results []Platform `json:"results"`
}
