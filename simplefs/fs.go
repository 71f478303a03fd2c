package simplefs

import (
	"io"

	"turret-go/errcode"
)

// Storage is the backing device. *bytes.Reader and TinyGo's machine.Flash
// both satisfy it.
type Storage interface {
	io.ReaderAt
	Size() int64
}

// FileSystem is a mounted image. It is never unmounted; files keep a
// reference to it.
type FileSystem struct {
	st      Storage
	entries []DirEntry
}

// Mount validates the header and directory and caches the directory.
func Mount(st Storage) (*FileSystem, error) {
	size := st.Size()
	if size < HeaderSize {
		return nil, &errcode.E{C: errcode.Inconsistent, Op: "simplefs.mount", Msg: "image shorter than header"}
	}
	var hdr [HeaderSize]byte
	if err := readFull(st, hdr[:], 0); err != nil {
		return nil, err
	}
	if getU64(hdr[:8]) != Signature {
		return nil, &errcode.E{C: errcode.InvalidSignature, Op: "simplefs.mount"}
	}
	n := int(getU16(hdr[8:10]))
	if int64(HeaderSize+n*DirEntrySize) > size {
		return nil, &errcode.E{C: errcode.Inconsistent, Op: "simplefs.mount", Msg: "directory past end of image"}
	}

	fs := &FileSystem{st: st, entries: make([]DirEntry, n)}
	var raw [DirEntrySize]byte
	for i := range fs.entries {
		if err := readFull(st, raw[:], int64(HeaderSize+i*DirEntrySize)); err != nil {
			return nil, err
		}
		e := decodeEntry(raw[:])
		if int64(e.Offset)+int64(e.Length) > size {
			return nil, &errcode.E{C: errcode.Inconsistent, Op: "simplefs.mount", Msg: "file past end of image: " + e.Name}
		}
		fs.entries[i] = e
	}
	return fs, nil
}

func (fs *FileSystem) NumFiles() int { return len(fs.entries) }

// Entry returns the directory entry at index i.
func (fs *FileSystem) Entry(i int) (DirEntry, error) {
	if i < 0 || i >= len(fs.entries) {
		return DirEntry{}, &errcode.E{C: errcode.NotFound, Op: "simplefs.entry"}
	}
	return fs.entries[i], nil
}

// Lookup returns the index of the named file.
func (fs *FileSystem) Lookup(name string) (int, bool) {
	for i, e := range fs.entries {
		if e.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Open opens the file at directory index i.
func (fs *FileSystem) Open(i int) (*File, error) {
	e, err := fs.Entry(i)
	if err != nil {
		return nil, err
	}
	return &File{fs: fs, e: e}, nil
}

func (fs *FileSystem) OpenName(name string) (*File, error) {
	i, ok := fs.Lookup(name)
	if !ok {
		return nil, &errcode.E{C: errcode.NotFound, Op: "simplefs.open", Msg: name}
	}
	return fs.Open(i)
}

// File is a read cursor over one stored file.
type File struct {
	fs  *FileSystem
	e   DirEntry
	pos int64
}

func (f *File) Name() string { return f.e.Name }

func (f *File) Size() int64 { return int64(f.e.Length) }

// Read fills p from the current position. At the end it returns 0, io.EOF.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

// ReadAt reads relative to the start of the file.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "simplefs.read", Msg: "negative offset"}
	}
	remain := f.Size() - off
	if remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remain {
		p = p[:remain]
	}
	if err := readFull(f.fs.st, p, int64(f.e.Offset)+off); err != nil {
		return 0, err
	}
	return len(p), nil
}


func readFull(st Storage, p []byte, off int64) error {
	n, err := st.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return &errcode.E{C: errcode.Inconsistent, Op: "simplefs.read", Err: err}
}
