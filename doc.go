// Package shellprefs decides which frontend shell a CRM user is served.
//
// A user stores a FrontendPreference and a workspace stores a FrontendPolicy. The policy can
// force one shell on every member; otherwise the member's own preference applies. Resolve and
// DecideRedirect are pure functions. The Manager wraps them with persistence (see the storage
// package) and optional caching (see the cache package).
package shellprefs
