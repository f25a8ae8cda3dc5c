package cas

import "context"

// LocalStore derives content ids without keeping the bytes.
type LocalStore struct{}

func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

func (s *LocalStore) Put(_ context.Context, data []byte, name string) (*PutResult, error) {
	return &PutResult{
		ContentID: localPrefix + Sum(data),
		Size:      int64(len(data)),
		Name:      name,
	}, nil
}

func (s *LocalStore) Get(context.Context, string) ([]byte, error) {
	return nil, errBackendUnavailable
}

func (s *LocalStore) Pin(context.Context, string) error {
	return nil
}

func (s *LocalStore) Mode() Mode {
	return ModeDegraded
}
