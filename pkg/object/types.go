package object

// Hash is a 40-character hex-encoded SHA-1 digest of a framed object.
type Hash string

// Short returns the first eight characters of h, for display.
func (h Hash) Short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

func (t ObjectType) valid() bool {
	switch t {
	case TypeBlob, TypeTree, TypeCommit:
		return true
	}
	return false
}

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a flat tree object. Path is relative to the
// repository root and uses forward slashes.
type TreeEntry struct {
	Mode     string
	Path     string
	BlobHash Hash
}

// TreeObj holds the entries of a snapshot, sorted by Path.
type TreeObj struct {
	Entries []TreeEntry
}

// CommitObj represents a commit pointing to a tree with metadata.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    string
	Timestamp int64
	Timezone  string // "+hhmm" / "-hhmm"
	Signature string
	Message   string
}
