// Package xref derives cross-reference records from an issue's raw
// timeline events.
package xref

import (
	"encoding/json"
)

// Ref is one normalized cross-reference record.
type Ref struct {
	// Event is "cross-referenced" or "referenced".
	Event string `json:"event"`

	// From is the number of the referring issue or pull request.
	// Cross-referenced events only.
	From int `json:"from,omitempty"`

	// Type is the referring item's type, defaulting to "issue".
	// Cross-referenced events only.
	Type string `json:"type,omitempty"`

	// Commit is the referencing commit id. Referenced events only.
	Commit string `json:"commit,omitempty"`

	// Actor is the login of the user behind the event, null when the
	// event carries no actor.
	Actor *string `json:"actor"`

	// Date is the event's created_at timestamp as received.
	Date *string `json:"date"`
}

// timelineEvent is the subset of a raw timeline event we read.
type timelineEvent struct {
	Event string `json:"event"`
	Actor *struct {
		Login string `json:"login"`
	} `json:"actor"`
	CreatedAt *string `json:"created_at"`
	CommitID  string  `json:"commit_id"`
	Source    *struct {
		Type  string `json:"type"`
		Issue *struct {
			Number int `json:"number"`
		} `json:"issue"`
	} `json:"source"`
}

// Extract maps raw timeline events to cross-reference records, preserving
// input order. Cross-referenced events without a source issue number and
// referenced events without a commit id are dropped, as is every other
// event type.
func Extract(events []json.RawMessage) []Ref {
	refs := []Ref{}
	for _, raw := range events {
		var ev timelineEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}

		var actor *string
		if ev.Actor != nil {
			login := ev.Actor.Login
			actor = &login
		}

		switch ev.Event {
		case "cross-referenced":
			if ev.Source == nil || ev.Source.Issue == nil || ev.Source.Issue.Number == 0 {
				continue
			}
			itemType := ev.Source.Type
			if itemType == "" {
				itemType = "issue"
			}
			refs = append(refs, Ref{
				Event: "cross-referenced",
				From:  ev.Source.Issue.Number,
				Type:  itemType,
				Actor: actor,
				Date:  ev.CreatedAt,
			})

		case "referenced":
			if ev.CommitID == "" {
				continue
			}
			refs = append(refs, Ref{
				Event:  "referenced",
				Commit: ev.CommitID,
				Actor:  actor,
				Date:   ev.CreatedAt,
			})
		}
	}
	return refs
}
