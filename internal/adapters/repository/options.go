package repository

// Option configures a BadgerStore.
type Option func(*BadgerStore)

// WithPath sets the on-disk directory for the database.
func WithPath(path string) Option {
	return func(s *BadgerStore) {
		s.path = path
	}
}

// WithInMemory keeps the whole database in memory. Intended for tests and
// throwaway environments; nothing survives Close.
func WithInMemory(inMemory bool) Option {
	return func(s *BadgerStore) {
		s.inMemory = inMemory
	}
}

// WithSyncWrites toggles fsync on every commit. On by default.
func WithSyncWrites(sync bool) Option {
	return func(s *BadgerStore) {
		s.syncWrites = sync
	}
}
