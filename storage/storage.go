// Package storage provides persistence backends for users' frontend preferences and
// workspaces' frontend policies.
package storage

import "github.com/CreativeUnicorns/shellprefs"

var (
	_ shellprefs.Storage = (*MemoryStorage)(nil)
	_ shellprefs.Storage = (*PostgresStorage)(nil)
	_ shellprefs.Storage = (*SQLiteStorage)(nil)
)
