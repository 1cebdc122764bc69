// Package models holds the persisted entities and the request and response
// payloads of the HTTP API.
package models

// All lists every model managed by migrations, in dependency order
func All() []any {
	return []any{&User{}, &Article{}}
}
