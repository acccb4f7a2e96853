// Package video classifies answer video links and derives preview thumbnails.
package video

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/solvefy/solvefy/internal/model"
)

// ErrUnknownType is returned for a video type outside youtube, vimeo and uploaded.
var ErrUnknownType = errors.New("unknown video type")

var (
	reYouTubeID = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([A-Za-z0-9_-]+)`)
	reVimeo     = regexp.MustCompile(`vimeo\.com/\d+`)
)

// ParseType validates a client-supplied video type.
func ParseType(s string) (model.VideoType, error) {
	switch t := model.VideoType(strings.ToLower(strings.TrimSpace(s))); t {
	case model.VideoYouTube, model.VideoVimeo, model.VideoUploaded:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// DetectType guesses the host of url. Anything not recognised as YouTube or
// Vimeo is treated as an uploaded file.
func DetectType(url string) model.VideoType {
	switch {
	case reYouTubeID.MatchString(url):
		return model.VideoYouTube
	case reVimeo.MatchString(url):
		return model.VideoVimeo
	default:
		return model.VideoUploaded
	}
}

// YouTubeID extracts the video id from a watch or short link.
func YouTubeID(url string) (string, bool) {
	m := reYouTubeID.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Thumbnail returns the maxres preview image of a YouTube link, or nil when
// url carries no recognisable video id.
func Thumbnail(url string) *string {
	id, ok := YouTubeID(url)
	if !ok {
		return nil
	}
	thumb := "https://img.youtube.com/vi/" + id + "/maxresdefault.jpg"
	return &thumb
}

// Info is the derived video metadata stored on an answer.
type Info struct {
	URL       *string
	Type      *model.VideoType
	Thumbnail *string
}

// Resolve normalizes an answer's video fields. An empty url clears them all.
// An empty typ is detected from url. Thumbnails are only derived for YouTube.
func Resolve(url, typ string) (Info, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Info{}, nil
	}

	var t model.VideoType
	if strings.TrimSpace(typ) == "" {
		t = DetectType(url)
	} else {
		var err error
		if t, err = ParseType(typ); err != nil {
			return Info{}, err
		}
	}

	info := Info{URL: &url, Type: &t}
	if t == model.VideoYouTube {
		info.Thumbnail = Thumbnail(url)
	}
	return info, nil
}
