package logger

import "log/slog"

// Standard field keys for structured logging across the repository,
// storage, and diff/index subsystems.
const (
	KeyKey       = "key"        // flat object name, e.g. "<id>.pack"
	KeyObjectID  = "object_id"  // base32 content hash
	KeyKind      = "kind"       // pack, index, snapshot
	KeySize      = "size"       // bytes
	KeyPath      = "path"       // repository-relative or filesystem path
	KeyOp        = "op"         // operation name (read, write, list, remove, rebuild...)
	KeyCacheHit  = "cache_hit"  // whether a read was served from the local cache
	KeyBytesUp   = "bytes_up"   // cumulative bytes uploaded
	KeyBytesDown = "bytes_down" // cumulative bytes downloaded
	KeyDryRun    = "dry_run"    // index rebuild dry-run flag
	KeyCount     = "count"      // generic item count
	KeyError     = "error"
)

// Key returns a slog.Attr for the flat object name under operation.
func Key(k string) slog.Attr { return slog.String(KeyKey, k) }

// ObjectID returns a slog.Attr for a content hash.
func ObjectID(id string) slog.Attr { return slog.String(KeyObjectID, id) }

// Kind returns a slog.Attr for an object kind (pack, index, snapshot).
func Kind(k string) slog.Attr { return slog.String(KeyKind, k) }

// Size returns a slog.Attr for a byte size.
func Size(n uint64) slog.Attr { return slog.Uint64(KeySize, n) }

// Path returns a slog.Attr for a filesystem or repository path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Op returns a slog.Attr naming the operation in progress.
func Op(op string) slog.Attr { return slog.String(KeyOp, op) }

// CacheHit returns a slog.Attr recording whether a read hit the local cache.
func CacheHit(hit bool) slog.Attr { return slog.Bool(KeyCacheHit, hit) }

// Count returns a slog.Attr for a generic item count.
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }

// Err returns a slog.Attr for an error, or a no-op attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
