package clients

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Listing is the upstream content-listing envelope. Nested media blobs
// are carried as raw JSON and passed through unmodified.
type Listing struct {
	Data ListingData `json:"data"`
}

// ListingData holds the children and pagination cursors
type ListingData struct {
	Children []Thing `json:"children"`
	After    *string `json:"after"`
	Before   *string `json:"before"`
}

// Thing wraps one listing entry
type Thing struct {
	Kind    string   `json:"kind,omitempty"`
	Data    PostData `json:"data"`
	IconURL *string  `json:"icon_url,omitempty"`
}

// PostData is the upstream post payload
type PostData struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	URL                 string          `json:"url"`
	Permalink           string          `json:"permalink"`
	Subreddit           string          `json:"subreddit"`
	Score               int64           `json:"score"`
	IsVideo             bool            `json:"is_video"`
	Domain              string          `json:"domain"`
	Author              string          `json:"author"`
	CreatedUTC          float64         `json:"created_utc"`
	NumComments         int64           `json:"num_comments"`
	Over18              bool            `json:"over_18"`
	Selftext            string          `json:"selftext"`
	Body                string          `json:"body,omitempty"`
	IsSelf              bool            `json:"is_self"`
	IsGallery           bool            `json:"is_gallery"`
	PostHint            string          `json:"post_hint,omitempty"`
	Locked              bool            `json:"locked"`
	Stickied            bool            `json:"stickied"`
	ContentType         string          `json:"content_type,omitempty"`
	GalleryData         json.RawMessage `json:"gallery_data,omitempty"`
	MediaMetadata       json.RawMessage `json:"media_metadata,omitempty"`
	CrosspostParentList json.RawMessage `json:"crosspost_parent_list,omitempty"`
	Preview             json.RawMessage `json:"preview,omitempty"`
	Thumbnail           string          `json:"thumbnail,omitempty"`
}

// About is the community metadata envelope
type About struct {
	Data AboutData `json:"data"`
}

// AboutData holds the icon candidates in preference order
type AboutData struct {
	CommunityIcon     string `json:"community_icon"`
	MobileBannerImage string `json:"mobile_banner_image"`
	IconImg           string `json:"icon_img"`
	HeaderImg         string `json:"header_img"`
	BannerImg         string `json:"banner_img"`
}

// IconURL returns the first non-empty icon candidate, entity-unescaped
func (a AboutData) IconURL() string {
	for _, candidate := range []string{
		a.CommunityIcon,
		a.MobileBannerImage,
		a.IconImg,
		a.HeaderImg,
		a.BannerImg,
	} {
		cleaned := strings.TrimSpace(strings.ReplaceAll(candidate, "&amp;", "&"))
		if cleaned != "" {
			return cleaned
		}
	}
	return ""
}

func decodeListing(body io.Reader, timeout time.Duration) (*Listing, error) {
	var listing Listing
	if err := decodeWithDeadline(body, timeout, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func decodeAbout(body io.Reader, timeout time.Duration) (*About, error) {
	var about About
	if err := decodeWithDeadline(body, timeout, &about); err != nil {
		return nil, err
	}
	return &about, nil
}

// decodeWithDeadline decodes v from r, failing with ErrParseTimeout if
// decoding takes longer than timeout. The caller's deferred body close
// unblocks the decode goroutine on timeout.
func decodeWithDeadline(r io.Reader, timeout time.Duration, v any) error {
	done := make(chan error, 1)

	go func() {
		done <- json.NewDecoder(r).Decode(v)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("decode upstream response: %w", err)
		}
		return nil
	case <-timer.C:
		return ErrParseTimeout
	}
}
