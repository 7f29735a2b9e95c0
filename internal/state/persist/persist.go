package persist

import (
	"bytes"
	"encoding"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/evtele/easee/log2"
	"github.com/juju/errors"
	"github.com/temoto/extremofile"
)

type Stater interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type storage interface {
	Read() ([]byte, error)
	io.Writer
}

// DefaultRecordSize fits saved API token with plenty of room.
const DefaultRecordSize = 8 << 10

// Binds Stater{Marshal,Unmarshal}Binary to crash-safe file storage under root/tag.
// Storage overwrites files in place without truncation, so records are
// zero padded to RecordSize and trimmed on Load.
type Persist struct {
	sync.Mutex
	RecordSize int

	log     *log2.Log
	tag     string
	target  Stater
	storage storage
}

func (p *Persist) Init(tag string, target Stater, root string, log *log2.Log) error {
	p.tag = tag
	p.log = log
	if root == "" {
		return errors.Errorf("persist %s root=empty", p.tag)
	}
	if target == nil {
		panic("code error persist target nil")
	}
	p.target = target
	p.storage = extremofile.New(extremofile.Config{
		Dir:      filepath.Join(root, tag),
		DirPerm:  0700,
		FilePerm: 0600,
	})
	return nil
}

// Load returns (false, nil) when nothing was stored yet.
func (p *Persist) Load() (bool, error) {
	if p.tag == "" {
		panic("code error persist must call .Init() first")
	}
	p.Lock()
	defer p.Unlock()
	tbegin := time.Now()
	b, err := p.storage.Read()
	p.log.Debugf("persist %s storage.read duration=%v", p.tag, time.Since(tbegin))
	if b == nil {
		if extremofile.IsCritical(err) {
			return false, errors.Annotatef(err, "persist %s Load", p.tag)
		}
		return false, nil
	}
	if err != nil {
		p.log.Errorf("persist %s ignore non-critical storage err=%v", p.tag, err)
	}
	err = p.target.UnmarshalBinary(bytes.TrimRight(b, "\x00"))
	return err == nil, errors.Annotatef(err, "persist %s Load", p.tag)
}

func (p *Persist) Store() error {
	if p.tag == "" {
		panic("code error persist must call .Init() first")
	}
	p.Lock()
	defer p.Unlock()
	size := p.RecordSize
	if size == 0 {
		size = DefaultRecordSize
	}
	b, err := p.target.MarshalBinary()
	if err == nil && len(b) > size {
		err = errors.Errorf("record length=%d > size=%d", len(b), size)
	}
	if err == nil {
		b = append(b, make([]byte, size-len(b))...)
		tbegin := time.Now()
		_, err = p.storage.Write(b)
		p.log.Debugf("persist %s storage.write duration=%v", p.tag, time.Since(tbegin))
	}
	return errors.Annotatef(err, "persist %s Store", p.tag)
}
