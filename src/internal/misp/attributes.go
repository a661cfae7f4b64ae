// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// AttributePayload carries the caller-supplied fields for a new attribute.
// A nil Distribution defaults to 5 (Inherit from Event).
type AttributePayload struct {
	Type         string
	Value        string
	Category     string
	ToIDS        bool
	Comment      string
	Distribution *int
}

// addAttributeBody is the wire form of POST /attributes/add/{event_id}.
type addAttributeBody struct {
	Type         string `json:"type"`
	Value        string `json:"value"`
	Category     string `json:"category"`
	ToIDS        Flag   `json:"to_ids"`
	Comment      string `json:"comment,omitempty"`
	Distribution int    `json:"distribution"`
}

// attributeEnvelope wraps the single-attribute payload of /attributes/add.
type attributeEnvelope struct {
	Attribute Attribute `json:"Attribute"`
}

// attributeSearchBody is the wire form of POST /attributes/restSearch.
type attributeSearchBody struct {
	ReturnFormat string `json:"returnFormat"`
	EventID      string `json:"eventid,omitempty"`
	Type         string `json:"type,omitempty"`
	Category     string `json:"category,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// attributeSearchResponse is the envelope of POST /attributes/restSearch.
type attributeSearchResponse struct {
	Response struct {
		Attribute []Attribute `json:"Attribute"`
	} `json:"response"`
}

// AddAttribute validates the payload locally, normalizes the indicator value
// (see [NormalizeValue]), and attaches it to the event with one
// POST /attributes/add call.
func (c *Client) AddAttribute(ctx context.Context, eventID string, payload AttributePayload) (*Attribute, error) {
	const op = "misp: add attribute"

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, validationErrorf(op, "event_id is required and must not be empty")
	}
	if strings.TrimSpace(payload.Type) == "" {
		return nil, validationErrorf(op, "attribute_type is required and must not be empty")
	}
	if strings.TrimSpace(payload.Category) == "" {
		return nil, validationErrorf(op, "category is required and must not be empty")
	}

	value := NormalizeValue(payload.Value)
	if value == "" {
		return nil, validationErrorf(op, "value is required and must not be empty")
	}

	body := addAttributeBody{
		Type:         strings.TrimSpace(payload.Type),
		Value:        value,
		Category:     strings.TrimSpace(payload.Category),
		ToIDS:        Flag(payload.ToIDS),
		Comment:      payload.Comment,
		Distribution: DistributionInherit,
	}
	if payload.Distribution != nil {
		body.Distribution = *payload.Distribution
	}
	if err := ValidateAttributeDistribution(op, body.Distribution); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/attributes/add/"+url.PathEscape(eventID), body)
	if err != nil {
		return nil, newError(KindUnknown, op, "building the request failed", err)
	}

	var envelope attributeEnvelope
	if err := c.do(op, req, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Attribute, nil
}

// AttributeSearchRequest carries the supported attribute search filters.
type AttributeSearchRequest struct {
	// EventID restricts results to one event. Required by the MCP layer, but
	// optional at this level so the search can also serve indicator pivots.
	EventID string

	// Type and Category filter by the MISP vocabularies.
	Type     string
	Category string

	// Limit caps the number of returned attributes. Zero leaves the cap to
	// the server.
	Limit int
}

// SearchAttributes runs one POST /attributes/restSearch call with the given
// filters.
func (c *Client) SearchAttributes(ctx context.Context, req AttributeSearchRequest) ([]Attribute, error) {
	const op = "misp: search attributes"

	if req.Limit < 0 {
		return nil, validationErrorf(op, "limit must not be negative, got %d", req.Limit)
	}

	body := attributeSearchBody{
		ReturnFormat: "json",
		EventID:      strings.TrimSpace(req.EventID),
		Type:         strings.TrimSpace(req.Type),
		Category:     strings.TrimSpace(req.Category),
		Limit:        req.Limit,
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/attributes/restSearch", body)
	if err != nil {
		return nil, newError(KindUnknown, op, "building the request failed", err)
	}

	var result attributeSearchResponse
	if err := c.do(op, httpReq, &result); err != nil {
		return nil, err
	}
	return result.Response.Attribute, nil
}
