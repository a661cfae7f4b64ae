// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp

import (
	"context"
	"net/http"
)

// feedEnvelope wraps each element of the GET /feeds listing.
type feedEnvelope struct {
	Feed Feed `json:"Feed"`
}

// ListFeeds returns the feed sources configured on the MISP instance,
// enabled and disabled alike. The feeds resource splits them for reporting.
func (c *Client) ListFeeds(ctx context.Context) ([]Feed, error) {
	const op = "misp: list feeds"

	req, err := c.newRequest(ctx, http.MethodGet, "/feeds", nil)
	if err != nil {
		return nil, newError(KindUnknown, op, "building the request failed", err)
	}

	var envelopes []feedEnvelope
	if err := c.do(op, req, &envelopes); err != nil {
		return nil, err
	}

	feeds := make([]Feed, 0, len(envelopes))
	for _, envelope := range envelopes {
		feeds = append(feeds, envelope.Feed)
	}
	return feeds, nil
}
