package scrape

import (
	"context"
	"errors"
	"sync"

	"portal-connector/internal/browseruse"
	"portal-connector/internal/store"
)

// fakeStore is an in-memory store.Store with injectable failures. It mirrors
// the Postgres behavior the workflow relies on: uniqueness of
// (position_id, phone_hash) adjudicated at insert time.
type fakeStore struct {
	mu         sync.Mutex
	companies  map[string]string // name -> id
	positions  map[string]string // companyID+"/"+title -> id
	candidates map[string]store.Candidate

	companyErr  error
	positionErr error
	hashesErr   error
	insertErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		companies:  map[string]string{},
		positions:  map[string]string{},
		candidates: map[string]store.Candidate{},
	}
}

func (f *fakeStore) EnsureCompany(_ context.Context, name string) (string, error) {
	if f.companyErr != nil {
		return "", f.companyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.companies[name]; ok {
		return id, nil
	}
	id := "company-" + name
	f.companies[name] = id
	return id, nil
}

func (f *fakeStore) EnsurePosition(_ context.Context, companyID, title string) (string, error) {
	if f.positionErr != nil {
		return "", f.positionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := companyID + "/" + title
	if id, ok := f.positions[key]; ok {
		return id, nil
	}
	id := "position-" + title
	f.positions[key] = id
	return id, nil
}

func (f *fakeStore) ExistingPhoneHashes(_ context.Context, positionID string) ([]string, error) {
	if f.hashesErr != nil {
		return nil, f.hashesErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var hashes []string
	for _, c := range f.candidates {
		if c.PositionID == positionID && c.PhoneHash != "" {
			hashes = append(hashes, c.PhoneHash)
		}
	}
	return hashes, nil
}

func (f *fakeStore) InsertCandidate(_ context.Context, c store.Candidate) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := c.PositionID + "/" + c.PhoneHash
	if _, ok := f.candidates[key]; ok {
		return store.ErrDuplicate
	}
	f.candidates[key] = c
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close()                     {}

// fakeRunner returns canned provider output.
type fakeRunner struct {
	out      []browseruse.RawCandidate
	err      error
	called   bool
	lastSpec browseruse.TaskSpec
}

func (f *fakeRunner) Run(_ context.Context, spec browseruse.TaskSpec) ([]browseruse.RawCandidate, error) {
	f.called = true
	f.lastSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

var errStoreDown = errors.New("connection refused")
