// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package github

import "strings"

// tokenPrefixes are the personal-access-token formats GitHub issues.
var tokenPrefixes = []string{"ghp_", "github_pat_"}

// TokenLooksValid reports whether the token carries a recognized
// personal-access-token prefix. Advisory only: other credential kinds
// (installation tokens, OAuth tokens) work against the API too, so callers
// should warn, never reject.
func TokenLooksValid(token string) bool {
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(token, p) {
			return true
		}
	}
	return false
}
