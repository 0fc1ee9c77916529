package storage

// Store bundles the SQL repository and the object store, satisfying
// the persistence boundary used by the scan workflow.
type Store struct {
	*SQLStore
	*ObjectStore
}

func New(db *SQLStore, objects *ObjectStore) *Store {
	return &Store{SQLStore: db, ObjectStore: objects}
}

func (s *Store) Close() error {
	return s.SQLStore.Close()
}
