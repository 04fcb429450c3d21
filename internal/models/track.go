package models

// Track is a chart entry. ISRC is the stable key across services.
type Track struct {
	ISRC           string `json:"isrc"`
	TrackName      string `json:"trackName"`
	ArtistName     string `json:"artistName"`
	FullTrackName  string `json:"fullTrackName,omitempty"`
	FullArtistName string `json:"fullArtistName,omitempty"`
	AlbumName      string `json:"albumName,omitempty"`
	AlbumCoverURL  string `json:"albumCoverUrl,omitempty"`

	SpotifyURL    string `json:"spotifyUrl,omitempty"`
	AppleMusicURL string `json:"appleMusicUrl,omitempty"`
	SoundcloudURL string `json:"soundcloudUrl,omitempty"`
	YoutubeURL    string `json:"youtubeUrl,omitempty"`

	TunemeldRank   int  `json:"tunemeldRank"`
	SpotifyRank    *int `json:"spotifyRank,omitempty"`
	AppleMusicRank *int `json:"appleMusicRank,omitempty"`
	SoundcloudRank *int `json:"soundcloudRank,omitempty"`

	SpotifyCurrentPlayCount     *int64   `json:"spotifyCurrentPlayCount,omitempty"`
	YoutubeCurrentPlayCount     *int64   `json:"youtubeCurrentPlayCount,omitempty"`
	TotalCurrentPlayCount       *int64   `json:"totalCurrentPlayCount,omitempty"`
	TotalWeeklyChangePercentage *float64 `json:"totalWeeklyChangePercentage,omitempty"`

	// Position is the display position; equals TunemeldRank unless a non-default rank reordered the list.
	Position int `json:"-"`
}

// Field resolves a numeric value by API data field name or by its rank sort field alias.
//
// The second return value is false when the field is unknown or unset.
func (t Track) Field(name string) (float64, bool) {
	switch name {
	case "tunemeldRank", "tunemeld-rank", "tunemeld_rank":
		return float64(t.TunemeldRank), true
	case "spotifyRank", "spotify-rank":
		return intPtr(t.SpotifyRank)
	case "appleMusicRank", "apple-music-rank":
		return intPtr(t.AppleMusicRank)
	case "soundcloudRank", "soundcloud-rank":
		return intPtr(t.SoundcloudRank)
	case "totalCurrentPlayCount", "total-plays":
		return int64Ptr(t.TotalCurrentPlayCount)
	case "spotifyCurrentPlayCount", "spotifyCurrentViewCount", "spotify-plays", "spotify-views":
		return int64Ptr(t.SpotifyCurrentPlayCount)
	case "youtubeCurrentPlayCount", "youtubeCurrentViewCount", "youtube-plays", "youtube-views":
		return int64Ptr(t.YoutubeCurrentPlayCount)
	case "totalWeeklyChangePercentage", "trending":
		if t.TotalWeeklyChangePercentage == nil {
			return 0, false
		}
		return *t.TotalWeeklyChangePercentage, true
	default:
		return 0, false
	}
}

// ServiceURL returns the track's link on service, or "" when the service has none.
func (t Track) ServiceURL(service string) string {
	switch service {
	case ServiceSpotify:
		return t.SpotifyURL
	case ServiceAppleMusic:
		return t.AppleMusicURL
	case ServiceSoundcloud:
		return t.SoundcloudURL
	case ServiceYouTube:
		return t.YoutubeURL
	default:
		return ""
	}
}

// ApplyPlayCount copies the enrichment counts onto the track.
func (t *Track) ApplyPlayCount(pc PlayCount) {
	t.SpotifyCurrentPlayCount = pc.SpotifyCurrentPlayCount
	t.YoutubeCurrentPlayCount = pc.YoutubeCurrentPlayCount
	t.TotalCurrentPlayCount = pc.TotalCurrentPlayCount
	t.TotalWeeklyChangePercentage = pc.TotalWeeklyChangePercentage
}

// PlayCount is play count enrichment for one ISRC.
type PlayCount struct {
	ISRC                                 string   `json:"isrc"`
	YoutubeCurrentPlayCount              *int64   `json:"youtubeCurrentPlayCount,omitempty"`
	SpotifyCurrentPlayCount              *int64   `json:"spotifyCurrentPlayCount,omitempty"`
	TotalCurrentPlayCount                *int64   `json:"totalCurrentPlayCount,omitempty"`
	YoutubeCurrentPlayCountAbbreviated   string   `json:"youtubeCurrentPlayCountAbbreviated,omitempty"`
	SpotifyCurrentPlayCountAbbreviated   string   `json:"spotifyCurrentPlayCountAbbreviated,omitempty"`
	TotalCurrentPlayCountAbbreviated     string   `json:"totalCurrentPlayCountAbbreviated,omitempty"`
	TotalWeeklyChangePercentage          *float64 `json:"totalWeeklyChangePercentage,omitempty"`
	TotalWeeklyChangePercentageFormatted string   `json:"totalWeeklyChangePercentageFormatted,omitempty"`
}

func intPtr(v *int) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return float64(*v), true
}

func int64Ptr(v *int64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return float64(*v), true
}
