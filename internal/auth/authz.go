package auth

import "strings"

// Authorize reports whether principal may perform action on resource.
//
// Access is granted if any of the following hold:
//   - principal carries RoleAdmin, which bypasses claim checks entirely.
//   - principal carries an exact claim "resource:action".
//   - principal carries a wildcard claim matching resource:action --
//     "resource:*", "*:action", or "*:*".
func Authorize(principal *Principal, resource, action string) bool {
	if principal == nil {
		return false
	}
	if principal.HasRole(RoleAdmin) {
		return true
	}

	want := resource + ":" + action
	for _, claim := range principal.Claims {
		if claim == want {
			return true
		}
		if matchesWildcard(claim, resource, action) {
			return true
		}
	}
	return false
}

func matchesWildcard(claim, resource, action string) bool {
	res, act, ok := strings.Cut(claim, ":")
	if !ok {
		return false
	}
	resourceOK := res == "*" || res == resource
	actionOK := act == "*" || act == action
	return resourceOK && actionOK
}
