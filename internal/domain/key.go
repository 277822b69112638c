package domain

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ParquetExt is the extension of every persisted object.
const ParquetExt = ".parquet"

// StorageKey is the partitioned destination of one run's output:
//
//	<root>/<prefix>/<YYYY>/<MM>/<DD>/<HH:MM:SS>[-<suffix>].parquet
//
// Date and time come from the wall clock at load time, never from the data.
type StorageKey struct {
	Root   string    // bucket root, e.g. "s3://dee-tutorial"
	Prefix string    // provider prefix inside the bucket, e.g. "open-meteo"
	At     time.Time // load time in the partition time zone
	Suffix string    // optional uniqueness component
	Ext    string
}

// Path returns the object key relative to the bucket root.
func (k StorageKey) Path() string {
	leaf := k.At.Format("15:04:05")
	if k.Suffix != "" {
		leaf += "-" + k.Suffix
	}
	leaf += k.Ext

	parts := make([]string, 0, 5)
	if p := strings.Trim(k.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, k.At.Format("2006"), k.At.Format("01"), k.At.Format("02"), leaf)
	return path.Join(parts...)
}

// URI returns the full location including the bucket root.
func (k StorageKey) URI() string {
	return strings.TrimSuffix(k.Root, "/") + "/" + k.Path()
}

func (k StorageKey) String() string { return k.URI() }

// KeyBuilder computes a fresh StorageKey per run.
type KeyBuilder struct {
	root   string
	prefix string
	clock  clockwork.Clock
	loc    *time.Location
	suffix func() string
}

// KeyOption customizes a KeyBuilder.
type KeyOption func(*KeyBuilder)

// WithClock sets the time source. Tests pass a fake clock to pin the key.
func WithClock(c clockwork.Clock) KeyOption {
	return func(b *KeyBuilder) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithLocation sets the time zone the partition segments are rendered in.
func WithLocation(loc *time.Location) KeyOption {
	return func(b *KeyBuilder) {
		if loc != nil {
			b.loc = loc
		}
	}
}

// WithSuffix sets the uniqueness generator. Nil disables the suffix, which
// reproduces plain second-granularity keys.
func WithSuffix(fn func() string) KeyOption {
	return func(b *KeyBuilder) { b.suffix = fn }
}

// NewKeyBuilder creates a builder for keys under root/prefix. By default it
// uses the real clock, UTC, and a random eight character suffix.
func NewKeyBuilder(root, prefix string, opts ...KeyOption) *KeyBuilder {
	b := &KeyBuilder{
		root:   root,
		prefix: prefix,
		clock:  clockwork.NewRealClock(),
		loc:    time.UTC,
		suffix: RandomSuffix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Next returns the key for a run loading now.
func (b *KeyBuilder) Next() StorageKey {
	k := StorageKey{
		Root:   b.root,
		Prefix: b.prefix,
		At:     b.clock.Now().In(b.loc),
		Ext:    ParquetExt,
	}
	if b.suffix != nil {
		k.Suffix = b.suffix()
	}
	return k
}

// Root returns the configured bucket root.
func (b *KeyBuilder) Root() string { return b.root }

// RandomSuffix returns the first eight hex digits of a random UUID.
func RandomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
