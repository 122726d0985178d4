package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRecord is returned when a record lacks the identity fields needed to route it.
var ErrInvalidRecord = errors.New("invalid interaction record")

// Timestamp layouts accepted for PostedAt.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// InteractionRecord is one post's engagement counters plus metadata, as delivered by
// the metrics ingestion side. Treat it as immutable once created.
type InteractionRecord struct {
	PostID            string         `json:"post_id" db:"post_id"`
	CreatorID         string         `json:"creator_id" db:"creator_id"`
	TopicID           string         `json:"topic_id,omitempty" db:"topic_id"`
	Likes             int            `json:"likes" db:"likes"`
	Comments          int            `json:"comments" db:"comments"`
	Shares            int            `json:"shares" db:"shares"`
	EmojiTotal        int            `json:"emoji_total" db:"emoji_total"`
	EmojiCounts       map[string]int `json:"emoji_counts,omitempty" db:"-"` // per-emoji breakdown, optional
	TotalInteractions int            `json:"total_interactions" db:"total_interactions"`
	Views             *int           `json:"views,omitempty" db:"views"`
	EngagementRate    float64        `json:"engagement_rate" db:"engagement_rate"`
	PostedAt          string         `json:"post_timestamp" db:"post_timestamp"`
	Content           string         `json:"content" db:"content"`
	SentimentScore    *float64       `json:"sentiment_score,omitempty" db:"sentiment_score"`
}

// Validate checks the fields without which a record cannot be attributed to a creator.
func (r InteractionRecord) Validate() error {
	var missing []string
	if strings.TrimSpace(r.PostID) == "" {
		missing = append(missing, "post_id")
	}
	if strings.TrimSpace(r.CreatorID) == "" {
		missing = append(missing, "creator_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(missing, ", "))
	}
	return nil
}

// Normalize returns a copy of the record with neutral defaults substituted for malformed
// or missing numeric fields, along with the data-quality issues it found.
func (r InteractionRecord) Normalize() (InteractionRecord, []string) {
	var issues []string
	out := r

	clampCounter := func(name string, v *int) {
		if *v < 0 {
			issues = append(issues, "negative_"+name)
			*v = 0
		}
	}
	clampCounter("likes", &out.Likes)
	clampCounter("comments", &out.Comments)
	clampCounter("shares", &out.Shares)
	clampCounter("emoji_total", &out.EmojiTotal)
	clampCounter("total_interactions", &out.TotalInteractions)

	if out.EmojiTotal == 0 && len(out.EmojiCounts) > 0 {
		sum := 0
		for _, n := range out.EmojiCounts {
			if n > 0 {
				sum += n
			}
		}
		out.EmojiTotal = sum
	}

	if out.TotalInteractions == 0 {
		out.TotalInteractions = out.Likes + out.Comments + out.Shares + out.EmojiTotal
	}

	if out.Views != nil && *out.Views < 0 {
		issues = append(issues, "negative_views")
		out.Views = nil
	}

	if out.EngagementRate < 0 {
		issues = append(issues, "negative_engagement_rate")
		out.EngagementRate = 0
	}
	if out.EngagementRate == 0 && out.Views != nil && *out.Views > 0 {
		out.EngagementRate = float64(out.TotalInteractions) / float64(*out.Views)
	}

	if out.SentimentScore != nil && (*out.SentimentScore < 0 || *out.SentimentScore > 1) {
		issues = append(issues, "sentiment_out_of_range")
		out.SentimentScore = nil
	}

	if _, ok := out.PostTime(); !ok {
		issues = append(issues, "unparsable_timestamp")
	}

	return out, issues
}

// PostTime parses PostedAt with the accepted layouts.
func (r InteractionRecord) PostTime() (time.Time, bool) {
	s := strings.TrimSpace(r.PostedAt)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
