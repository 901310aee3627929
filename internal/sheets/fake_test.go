package sheets

import (
	"context"
	"fmt"
	"sync"
)

type fakeFile struct {
	id, name, mime, parent string
}

// fakeAPI is an in-memory Drive + Sheets.
type fakeAPI struct {
	mu      sync.Mutex
	files   []fakeFile
	values  map[string][][]interface{} // spreadsheetID -> rows (range ignored)
	updates map[string][][]interface{} // spreadsheetID|range -> values
	seq     int
	err     error
	creates int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{values: map[string][][]interface{}{}, updates: map[string][][]interface{}{}}
}

func (f *fakeAPI) nextID() string {
	f.seq++
	return fmt.Sprintf("id-%d", f.seq)
}

func (f *fakeAPI) FindFile(_ context.Context, name, mime, parent string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	for _, file := range f.files {
		if file.name == name && file.mime == mime && (parent == "" || file.parent == parent) {
			return file.id, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeAPI) CreateFile(_ context.Context, name, mime, parent string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID()
	f.files = append(f.files, fakeFile{id: id, name: name, mime: mime, parent: parent})
	return id, nil
}

func (f *fakeAPI) CreateSpreadsheet(_ context.Context, title, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	id := f.nextID()
	f.files = append(f.files, fakeFile{id: id, name: title, mime: MimeSpreadsheet})
	return id, nil
}

func (f *fakeAPI) MoveToFolder(_ context.Context, fileID, folderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.files {
		if f.files[i].id == fileID {
			f.files[i].parent = folderID
			return nil
		}
	}
	return fmt.Errorf("no file %s", fileID)
}

func (f *fakeAPI) UpdateValues(_ context.Context, id, rng string, values [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id+"|"+rng] = values
	return nil
}

func (f *fakeAPI) AppendValues(_ context.Context, id, _ string, values [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.values[id] = append(f.values[id], values...)
	return nil
}

func (f *fakeAPI) GetValues(_ context.Context, id, _ string) ([][]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.values[id], nil
}

func (f *fakeAPI) UserEmail(context.Context) (string, error) { return "patrol@gmail.com", nil }

type fakeFactory struct {
	sess *Session
	err  error
}

func (f *fakeFactory) Session(context.Context) (*Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}
