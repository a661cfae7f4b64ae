// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package misp is a thin client wrapper around the [MISP] REST API. It holds
// one long-lived authenticated handle, translates typed method calls into
// single remote requests, and normalizes every failure into a closed error
// taxonomy ([Kind]) that callers branch on instead of matching message
// strings.
//
// The wrapper performs no retries, caching, or background work: each
// operation is one synchronous request bounded by the configured timeout.
// All domain semantics (the event model, attribute taxonomy, search
// behavior) live on the remote instance; this package only validates inputs
// before they leave the process and shapes responses on the way back.
//
// [MISP]: https://www.misp-project.org/
package misp
