package lastfm

// Track represents a Last.fm track entry.
type Track struct {
	Name      string `json:"name"`
	PlayCount string `json:"playcount"` // Last.fm serializes counts as strings
	URL       string `json:"url"`
}

// topTracksResponse is the JSON response for artist.getTopTracks.
type topTracksResponse struct {
	TopTracks struct {
		Track []Track `json:"track"`
		Attr  struct {
			Artist string `json:"artist"`
		} `json:"@attr"`
	} `json:"toptracks"`
}

// apiError represents a Last.fm API error response.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}
