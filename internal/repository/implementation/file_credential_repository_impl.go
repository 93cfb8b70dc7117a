// FILE: internal/repository/implementation/file_credential_repository_impl.go
// Implementation of CredentialRepository backed by a JSON file
package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/repository/contract"
)

type FileCredentialRepositoryImpl struct {
	path string
	mu   sync.Mutex
}

func NewFileCredentialRepository(path string) contract.CredentialRepository {
	return &FileCredentialRepositoryImpl{path: path}
}

func (r *FileCredentialRepositoryImpl) Load(_ context.Context) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	var pair map[string]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}

	token, username := pair[contract.TokenKey], pair[contract.UsernameKey]
	if token == "" || username == "" {
		return nil, nil
	}
	return &entity.Session{Username: username, Credential: token}, nil
}

func (r *FileCredentialRepositoryImpl) Save(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	data, err := json.MarshalIndent(map[string]string{
		contract.TokenKey:    session.Credential,
		contract.UsernameKey: session.Username,
	}, "", "  ")
	if err != nil {
		return err
	}

	// write then rename so a crash never leaves half a pair behind
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func (r *FileCredentialRepositoryImpl) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
