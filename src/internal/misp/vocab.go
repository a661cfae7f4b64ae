// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp

import "sort"

// CommonAttributeTypes lists frequently used MISP attribute types grouped by
// indicator family. MISP instances accept site-specific types beyond these,
// so callers treat membership as a hint, not a gate: unknown types produce a
// warning rather than a rejection.
var CommonAttributeTypes = map[string][]string{
	"Network":  {"ip-src", "ip-dst", "domain", "hostname", "url", "uri", "user-agent"},
	"Files":    {"filename", "md5", "sha1", "sha256", "sha512", "ssdeep", "imphash"},
	"Email":    {"email-src", "email-dst", "email-subject", "email-attachment"},
	"Registry": {"regkey", "regkey|value"},
	"Other":    {"text", "comment", "other", "vulnerability", "target-user"},
}

// CommonCategories lists the standard MISP attribute categories.
var CommonCategories = []string{
	"Antivirus detection",
	"Artifacts dropped",
	"Attribution",
	"External analysis",
	"Financial fraud",
	"Internal reference",
	"Network activity",
	"Other",
	"Payload delivery",
	"Payload installation",
	"Payload type",
	"Persistence mechanism",
	"Person",
	"Social network",
	"Support Tool",
	"Targeting data",
}

// IsCommonType reports whether the attribute type appears in
// [CommonAttributeTypes].
func IsCommonType(attrType string) bool {
	for _, types := range CommonAttributeTypes {
		for _, t := range types {
			if t == attrType {
				return true
			}
		}
	}
	return false
}

// IsCommonCategory reports whether the category appears in [CommonCategories].
func IsCommonCategory(category string) bool {
	for _, c := range CommonCategories {
		if c == category {
			return true
		}
	}
	return false
}

// AllCommonTypes returns every type from [CommonAttributeTypes] as a sorted
// flat list, for documentation resources and usage hints.
func AllCommonTypes() []string {
	var all []string
	for _, types := range CommonAttributeTypes {
		all = append(all, types...)
	}
	sort.Strings(all)
	return all
}
