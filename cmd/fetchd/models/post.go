package models

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/karmafinder/karmafetch/common/clients"
)

// Post is one cached content entry. A post belongs to exactly one page
// group; deleting the group deletes its posts. Position is the post's
// rank within the group, assigned at write time and never recomputed.
type Post struct {
	RedditPostID        string          `json:"reddit_post_id"`
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
	GalleryData         json.RawMessage `json:"gallery_data,omitempty"`
	MediaMetadata       json.RawMessage `json:"media_metadata,omitempty"`
	CrosspostParentList json.RawMessage `json:"crosspost_parent_list,omitempty"`
	Preview             json.RawMessage `json:"preview,omitempty"`
	ContentType         string          `json:"content_type,omitempty"`
	IconURL             *string         `json:"icon_url,omitempty"`
	Locked              bool            `json:"locked"`
	Stickied            bool            `json:"stickied"`
	PageGroup           string          `json:"page_group,omitempty"`
	Position            int             `json:"position"`
}

// PostFromThing converts an upstream listing entry into a storable post
func PostFromThing(t clients.Thing) Post {
	return Post{
		RedditPostID:        t.Data.ID,
		Title:               t.Data.Title,
		URL:                 t.Data.URL,
		Permalink:           t.Data.Permalink,
		Subreddit:           t.Data.Subreddit,
		Score:               t.Data.Score,
		IsVideo:             t.Data.IsVideo,
		Domain:              t.Data.Domain,
		Author:              t.Data.Author,
		CreatedUTC:          t.Data.CreatedUTC,
		NumComments:         t.Data.NumComments,
		Over18:              t.Data.Over18,
		Selftext:            t.Data.Selftext,
		Body:                t.Data.Body,
		IsSelf:              t.Data.IsSelf,
		IsGallery:           t.Data.IsGallery,
		PostHint:            t.Data.PostHint,
		GalleryData:         t.Data.GalleryData,
		MediaMetadata:       t.Data.MediaMetadata,
		CrosspostParentList: t.Data.CrosspostParentList,
		Preview:             t.Data.Preview,
		ContentType:         t.Data.ContentType,
		IconURL:             t.IconURL,
		Locked:              t.Data.Locked,
		Stickied:            t.Data.Stickied,
	}
}

// Thing converts a stored post back into the upstream listing shape so
// cached pages are served byte-compatible with live ones
func (p Post) Thing() clients.Thing {
	return clients.Thing{
		IconURL: p.IconURL,
		Data: clients.PostData{
			ID:                  p.RedditPostID,
			Title:               p.Title,
			URL:                 p.URL,
			Permalink:           p.Permalink,
			Subreddit:           p.Subreddit,
			Score:               p.Score,
			IsVideo:             p.IsVideo,
			Domain:              p.Domain,
			Author:              p.Author,
			CreatedUTC:          p.CreatedUTC,
			NumComments:         p.NumComments,
			Over18:              p.Over18,
			Selftext:            p.Selftext,
			Body:                p.Body,
			IsSelf:              p.IsSelf,
			IsGallery:           p.IsGallery,
			PostHint:            p.PostHint,
			GalleryData:         p.GalleryData,
			MediaMetadata:       p.MediaMetadata,
			CrosspostParentList: p.CrosspostParentList,
			Preview:             p.Preview,
			ContentType:         p.ContentType,
			Locked:              p.Locked,
			Stickied:            p.Stickied,
		},
	}
}

// Fullname returns the post's t3_-prefixed identifier, the form upstream
// pagination cursors use
func (p Post) Fullname() string {
	if strings.HasPrefix(p.RedditPostID, "t3_") {
		return p.RedditPostID
	}
	return "t3_" + p.RedditPostID
}
