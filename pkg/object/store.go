package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/klauspost/compress/zlib"

	"github.com/odvcencio/scs/pkg/fsutil"
)

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
//
// Every object is stored zlib-compressed in its framed form
// "type len\0content". Objects are never mutated or deleted.
type Store struct {
	fs billy.Filesystem
}

// NewStore creates a Store on fs, which must be rooted at the repository's
// marker directory. The objects/ subdirectory is created lazily on first
// write.
func NewStore(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// NewStoreAt creates a Store rooted at the OS directory dir.
func NewStoreAt(dir string) *Store {
	return NewStore(osfs.New(dir))
}

// objectPath returns the store-relative path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return s.fs.Join("objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if !ValidHash(h) {
		return false
	}
	return fsutil.Exists(s.fs, s.objectPath(h))
}

// Write stores an object and returns its content hash. Writing content that
// is already present is a no-op. New objects are written to a temp file and
// renamed into place, so concurrent writers of the same object race
// harmlessly.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	if !objType.valid() {
		return "", fmt.Errorf("object write: unknown type %q", objType)
	}

	framed := Frame(objType, data)
	h, collision := hashFramed(framed)
	if collision {
		return "", corruptf("write", h, "sha1 collision pattern detected in payload")
	}

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(framed); err != nil {
		return "", &ObjectError{Op: "write", Hash: h, Err: fmt.Errorf("compress: %w", err)}
	}
	if err := zw.Close(); err != nil {
		return "", &ObjectError{Op: "write", Hash: h, Err: fmt.Errorf("compress: %w", err)}
	}

	if err := fsutil.WriteFileAtomic(s.fs, s.objectPath(h), buf.Bytes()); err != nil {
		return "", &ObjectError{Op: "write", Hash: h, Err: err}
	}
	return h, nil
}

// Read retrieves an object by hash, returning its type and raw content.
// A missing object yields ErrObjectNotFound; an object that cannot be
// decompressed or whose framing is malformed yields ErrObjectCorrupt.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	if !ValidHash(h) {
		return "", nil, &ObjectError{Op: "read", Hash: h, Err: ErrObjectNotFound}
	}

	raw, err := fsutil.ReadFile(s.fs, s.objectPath(h))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, &ObjectError{Op: "read", Hash: h, Err: ErrObjectNotFound}
		}
		return "", nil, &ObjectError{Op: "read", Hash: h, Err: err}
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", nil, corruptf("read", h, "decompress: %v", err)
	}
	framed, err := io.ReadAll(zr)
	zr.Close()
	if err != nil {
		return "", nil, corruptf("read", h, "decompress: %v", err)
	}

	return parseFrame(h, framed)
}

// parseFrame splits "type len\0content" and checks the declared length.
func parseFrame(h Hash, framed []byte) (ObjectType, []byte, error) {
	nulIdx := bytes.IndexByte(framed, 0)
	if nulIdx < 0 {
		return "", nil, corruptf("read", h, "invalid format (no NUL)")
	}
	header := string(framed[:nulIdx])
	content := framed[nulIdx+1:]

	typ, lenStr, ok := strings.Cut(header, " ")
	if !ok {
		return "", nil, corruptf("read", h, "invalid header %q", header)
	}
	objType := ObjectType(typ)
	if !objType.valid() {
		return "", nil, corruptf("read", h, "unknown type %q", typ)
	}
	length, err := strconv.Atoi(lenStr)
	if err != nil {
		return "", nil, corruptf("read", h, "invalid length %q", lenStr)
	}
	if len(content) != length {
		return "", nil, corruptf("read", h, "length mismatch (header=%d, actual=%d)", length, len(content))
	}
	return objType, content, nil
}

// readTyped reads h and checks that it has the wanted type.
func (s *Store) readTyped(h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, corruptf("read", h, "type mismatch: got %q, want %q", objType, want)
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	data, err := s.readTyped(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(data)
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	data, err := MarshalTree(tr)
	if err != nil {
		return "", fmt.Errorf("object write tree: %w", err)
	}
	return s.Write(TypeTree, data)
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.readTyped(h, TypeTree)
	if err != nil {
		return nil, err
	}
	tr, err := UnmarshalTree(data)
	if err != nil {
		return nil, corruptf("read", h, "%v", err)
	}
	return tr, nil
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.readTyped(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	c, err := UnmarshalCommit(data)
	if err != nil {
		return nil, corruptf("read", h, "%v", err)
	}
	return c, nil
}
