// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import "fmt"

// getParams extracts parameters from a normalized JSON-RPC request.
func getParams(req map[string]any, method string) (map[string]any, error) {
	p, ok := req["params"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing params for %s", method)
	}
	return p, nil
}

// getStringParam extracts a required string parameter from JSON-RPC params.
func getStringParam(params map[string]any, method, key string) (string, error) {
	v, ok := params[key].(string)
	if !ok {
		return "", fmt.Errorf("invalid params for %s: %s must be a string", method, key)
	}
	return v, nil
}

// getOptionalStringParam extracts an optional string parameter, returning the
// empty string when the key is absent.
func getOptionalStringParam(params map[string]any, method, key string) (string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("invalid params for %s: %s must be a string", method, key)
	}
	return s, nil
}

// getMapParam extracts an optional object parameter as a map. An absent key
// yields a nil map, which the client treats as no arguments.
func getMapParam(params map[string]any, method, key string) (map[string]any, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid params for %s: %s must be an object", method, key)
	}
	return m, nil
}
