package models

import "encoding/json"

// RateLabels maps a rate value to its display label.
var RateLabels = map[int]string{
	1: "ok",
	2: "fine",
	3: "good",
	4: "amazing",
	5: "incredible",
}

// UserBookRelation is one user's like/bookmark/rate state for one book.
// The (user, book) pair is unique; rows are created lazily on first patch.
type UserBookRelation struct {
	ID          int64  `json:"-"`
	UserID      int64  `json:"-"`
	BookID      int64  `json:"book"`
	Like        bool   `json:"like"`
	InBookmarks bool   `json:"in_bookmarks"`
	Rate        *int   `json:"rate"`
	RateDisplay string `json:"rate_display,omitempty"`
}

// RelationPatch is a partial relation update. Fields absent from the JSON
// body must not touch existing state, while an explicit null rate clears
// the rate, so presence is tracked per key during unmarshaling.
type RelationPatch struct {
	Like        *bool
	InBookmarks *bool
	Rate        *int

	HasLike        bool
	HasInBookmarks bool
	HasRate        bool
}

func (p *RelationPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["like"]; ok {
		p.HasLike = true
		if err := json.Unmarshal(v, &p.Like); err != nil {
			return err
		}
	}
	if v, ok := raw["in_bookmarks"]; ok {
		p.HasInBookmarks = true
		if err := json.Unmarshal(v, &p.InBookmarks); err != nil {
			return err
		}
	}
	if v, ok := raw["rate"]; ok {
		p.HasRate = true
		if err := json.Unmarshal(v, &p.Rate); err != nil {
			return err
		}
	}
	return nil
}

// Validate returns field-level error messages, empty when the patch is valid.
func (p *RelationPatch) Validate() map[string]string {
	errs := map[string]string{}
	if p.HasLike && p.Like == nil {
		errs["like"] = "This field may not be null."
	}
	if p.HasInBookmarks && p.InBookmarks == nil {
		errs["in_bookmarks"] = "This field may not be null."
	}
	if p.HasRate && p.Rate != nil && (*p.Rate < 1 || *p.Rate > 5) {
		errs["rate"] = "Rate must be between 1 and 5."
	}
	return errs
}
