package media

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

// Store accepts file bytes out-of-band and hands back a stable reference
// string; the rest of the system only ever stores that reference.
type Store interface {
	Save(name string, r io.Reader) (ref string, err error)
	Open(ref string) (io.ReadCloser, error)
}

// DirStore keeps media files in a flat local directory under
// uuid-prefixed names.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "media.mkdir")
	}
	return &DirStore{root: root}, nil
}

func (s *DirStore) Save(name string, r io.Reader) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "media.uuid")
	}
	ref := id.String() + "_" + filepath.Base(name)

	f, err := os.Create(filepath.Join(s.root, ref))
	if err != nil {
		return "", errors.Wrap(err, "media.create")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "media.write")
	}
	return ref, nil
}

func (s *DirStore) Open(ref string) (io.ReadCloser, error) {
	// refs are opaque to callers; refuse anything that escapes the root
	if filepath.Base(ref) != ref {
		return nil, errors.New("media.open: invalid reference")
	}
	f, err := os.Open(filepath.Join(s.root, ref))
	return f, errors.Wrap(err, "media.open")
}
