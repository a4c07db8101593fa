// Package feed parses the Atom payload YouTube's hub pushes to the webhook
// endpoint. The payload carries either upsert entries (full video metadata)
// or tombstone deleted-entry elements (video + channel ref only); the two
// are distinguished structurally, not by a flag.
package feed

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/ytpush/internal/domain"
)

// Item is one parsed entry. Deleted items carry a Video holding only the
// video ID and channel ID; everything else is zero.
type Item struct {
	Video   *domain.Video
	Deleted bool
}

// xmlFeed mirrors the push payload. Field tags match by local name so the
// yt:, at: and media: namespace prefixes do not matter.
type xmlFeed struct {
	Title     string            `xml:"title"`
	Published string            `xml:"published"`
	Entries   []xmlEntry        `xml:"entry"`
	Deleted   []xmlDeletedEntry `xml:"deleted-entry"`
}

type xmlEntry struct {
	VideoID   string   `xml:"videoId"`
	ChannelID string   `xml:"channelId"`
	Title     string   `xml:"title"`
	Link      xmlLink  `xml:"link"`
	Author    xmlActor `xml:"author"`
	Published string   `xml:"published"`
	Updated   string   `xml:"updated"`
	Group     xmlGroup `xml:"group"`
}

type xmlDeletedEntry struct {
	Ref  string   `xml:"ref,attr"`
	When string   `xml:"when,attr"`
	By   xmlActor `xml:"by"`
}

type xmlLink struct {
	Href string `xml:"href,attr"`
}

type xmlActor struct {
	Name string `xml:"name"`
	URI  string `xml:"uri"`
}

type xmlGroup struct {
	Description string        `xml:"description"`
	Thumbnail   xmlThumbnail  `xml:"thumbnail"`
	Community   *xmlCommunity `xml:"community"`
}

type xmlThumbnail struct {
	URL    string `xml:"url,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
}

type xmlCommunity struct {
	StarRating struct {
		Count int64 `xml:"count,attr"`
	} `xml:"starRating"`
	Statistics struct {
		Views int64 `xml:"views,attr"`
	} `xml:"statistics"`
}

// videoRefPrefix is how tombstones reference a video ("yt:video:<id>").
const videoRefPrefix = "yt:video:"

// Parse decodes a push payload into items. Upsert entries come before
// tombstones in the returned slice.
func Parse(data []byte) ([]Item, error) {
	var f xmlFeed
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse feed payload: %w", err)
	}

	feedPublished := parseTime(f.Published)

	items := make([]Item, 0, len(f.Entries)+len(f.Deleted))
	for i := range f.Entries {
		v, err := toVideo(&f.Entries[i], feedPublished)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Video: v})
	}
	for i := range f.Deleted {
		v, err := toDeletedVideo(&f.Deleted[i])
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Video: v, Deleted: true})
	}

	return items, nil
}

func toVideo(e *xmlEntry, feedPublished time.Time) (*domain.Video, error) {
	if e.VideoID == "" || e.ChannelID == "" {
		return nil, fmt.Errorf("entry is missing video or channel ID")
	}

	var stats *domain.Stats
	if e.Group.Community != nil {
		stats = &domain.Stats{
			Likes: e.Group.Community.StarRating.Count,
			Views: e.Group.Community.Statistics.Views,
		}
	}

	return &domain.Video{
		ID:          e.VideoID,
		Title:       e.Title,
		Description: e.Group.Description,
		URL:         e.Link.Href,
		IsShort:     strings.Contains(e.Link.Href, "/shorts/"),
		Thumbnail: domain.Thumbnail{
			URL:    e.Group.Thumbnail.URL,
			Width:  e.Group.Thumbnail.Width,
			Height: e.Group.Thumbnail.Height,
		},
		Stats: stats,
		Timestamps: domain.Timestamps{
			Published: parseTime(e.Published),
			Updated:   parseTime(e.Updated),
		},
		Channel: domain.Channel{
			ID:        e.ChannelID,
			Name:      e.Author.Name,
			URL:       e.Author.URI,
			CreatedAt: feedPublished,
		},
	}, nil
}

func toDeletedVideo(d *xmlDeletedEntry) (*domain.Video, error) {
	if !strings.HasPrefix(d.Ref, videoRefPrefix) {
		return nil, fmt.Errorf("deleted-entry has unexpected ref %q", d.Ref)
	}
	videoID := strings.TrimPrefix(d.Ref, videoRefPrefix)
	if videoID == "" {
		return nil, fmt.Errorf("deleted-entry has empty video ID")
	}

	return &domain.Video{
		ID: videoID,
		Channel: domain.Channel{
			ID:   channelIDFromURI(d.By.URI),
			Name: d.By.Name,
			URL:  d.By.URI,
		},
		Timestamps: domain.Timestamps{
			Updated: parseTime(d.When),
		},
	}, nil
}

// channelIDFromURI extracts the trailing path segment of a channel URL.
func channelIDFromURI(uri string) string {
	uri = strings.TrimRight(uri, "/")
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}

// parseTime decodes the RFC3339 timestamps the feed uses. Bad or absent
// values map to the zero time rather than failing the whole delivery.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
