package domain

import "time"

// Channel identifies the YouTube channel a video belongs to.
// Values come from the push delivery itself (author element), so a channel
// is only materialized once the first event for it arrives.
type Channel struct {
	ID        string    // provider-assigned channel ID (ex: "UCupvZG-5ko_eiXAupbDfxWw")
	Name      string    // display name from the feed author element
	URL       string    // canonical channel URL
	CreatedAt time.Time // feed-level published timestamp
}

// Thumbnail is the preview image attached to a video entry.
type Thumbnail struct {
	URL    string
	Width  int
	Height int
}

// Stats holds the public counters of a video. Uploaders can hide them,
// in which case the pointer on Video stays nil.
type Stats struct {
	Likes int64
	Views int64
}

// Timestamps groups the two feed timestamps of a video.
type Timestamps struct {
	Published time.Time
	Updated   time.Time
}

// Video is one content item parsed from a push delivery.
// It is constructed once per delivery and never mutated afterwards.
type Video struct {
	ID          string
	Title       string
	Description string
	URL         string
	IsShort     bool // true when the entry links to a /shorts/ URL
	Thumbnail   Thumbnail
	Stats       *Stats
	Timestamps  Timestamps
	Channel     Channel
}
