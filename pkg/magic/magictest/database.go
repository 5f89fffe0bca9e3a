package magictest

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// CompiledHeader starts every compiled database.
const CompiledHeader = "#magictest-compiled\n"

// Signature is one database entry. Exactly one of String and Hex is set.
type Signature struct {
	Offset      int    `yaml:"offset"`
	String      string `yaml:"string,omitempty"`
	Hex         string `yaml:"hex,omitempty"`
	Description string `yaml:"description"`
	MIME        string `yaml:"mime,omitempty"`
	Encoding    string `yaml:"encoding,omitempty"`
	Extension   string `yaml:"extension,omitempty"`
	// Warning is reported as a native diagnostic alongside a successful
	// match.
	Warning string `yaml:"warning,omitempty"`
}

func (s Signature) pattern() ([]byte, error) {
	switch {
	case s.String != "" && s.Hex != "":
		return nil, errors.New("both string and hex set")
	case s.String != "":
		return []byte(s.String), nil
	case s.Hex != "":
		return hex.DecodeString(s.Hex)
	default:
		return nil, errors.New("no pattern")
	}
}

func (s Signature) validate() error {
	if s.Offset < 0 {
		return fmt.Errorf("negative offset %d", s.Offset)
	}
	if s.Description == "" {
		return errors.New("missing description")
	}
	if _, err := s.pattern(); err != nil {
		return err
	}
	return nil
}

func (s Signature) matches(b []byte) bool {
	p, err := s.pattern()
	if err != nil || s.Offset+len(p) > len(b) {
		return false
	}
	return bytes.Equal(b[s.Offset:s.Offset+len(p)], p)
}

// Source encodes sigs as a source database.
func Source(sigs []Signature) []byte {
	out, err := yaml.Marshal(sigs)
	if err != nil {
		panic(fmt.Sprintf("magictest: encode database: %v", err))
	}
	return out
}

// Compiled encodes sigs as a compiled database, suitable for
// magic.(*Magic).LoadBuffers.
func Compiled(sigs []Signature) []byte {
	return append([]byte(CompiledHeader), Source(sigs)...)
}

// parseDatabase decodes a source or compiled database and reports which
// one it was.
func parseDatabase(b []byte) (sigs []Signature, compiled bool, err error) {
	if rest, ok := bytes.CutPrefix(b, []byte(CompiledHeader)); ok {
		b, compiled = rest, true
	}
	if err := yaml.Unmarshal(b, &sigs); err != nil {
		return nil, compiled, err
	}
	for i, s := range sigs {
		if err := s.validate(); err != nil {
			return nil, compiled, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return sigs, compiled, nil
}

func splitPaths(paths string) []string {
	var out []string
	for _, p := range strings.Split(paths, magic.PathListSeparator) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readDatabases loads and concatenates every file in paths, recording the
// first failure on ck.
func (ck *cookie) readDatabases(paths string) ([]Signature, bool) {
	list := splitPaths(paths)
	if len(list) == 0 {
		ck.fail("could not find any valid magic files!", int(syscall.ENOENT))
		return nil, false
	}
	var all []Signature
	for _, p := range list {
		data, err := os.ReadFile(p)
		if err != nil {
			ck.fail(fmt.Sprintf("cannot open `%s' (%s)", p, strerror(err)), errnoOf(err))
			return nil, false
		}
		sigs, _, err := parseDatabase(data)
		if err != nil {
			ck.fail(fmt.Sprintf("%s: bad magic entry: %v", p, err), int(syscall.EINVAL))
			return nil, false
		}
		all = append(all, sigs...)
	}
	return all, true
}

func (e *Engine) Load(c magic.Cookie, paths string) int {
	ck, done := e.enter("Load", c)
	defer done()
	if ck == nil {
		return -1
	}
	ck.clear()
	if paths == "" {
		paths = e.defaultPath()
	}
	sigs, ok := ck.readDatabases(paths)
	if !ok {
		ck.sigs = nil
		return -1
	}
	ck.sigs = sigs
	return 0
}

func (e *Engine) LoadBuffers(c magic.Cookie, buffers [][]byte) int {
	ck, done := e.enter("LoadBuffers", c)
	defer done()
	if ck == nil {
		return -1
	}
	ck.clear()
	ck.sigs = nil
	var all []Signature
	for i, b := range buffers {
		sigs, compiled, err := parseDatabase(b)
		if err != nil || !compiled {
			return ck.fail(fmt.Sprintf("bad magic in buffer %d", i), int(syscall.EINVAL))
		}
		all = append(all, sigs...)
	}
	ck.sigs = all
	return 0
}

func (e *Engine) Check(c magic.Cookie, paths string) int {
	ck, done := e.enter("Check", c)
	defer done()
	if ck == nil {
		return -1
	}
	ck.clear()
	if paths == "" {
		paths = e.defaultPath()
	}
	if _, ok := ck.readDatabases(paths); !ok {
		return -1
	}
	return 0
}

// Compile writes FILE.mgc next to every source FILE in paths.
func (e *Engine) Compile(c magic.Cookie, paths string) int {
	ck, done := e.enter("Compile", c)
	defer done()
	if ck == nil {
		return -1
	}
	ck.clear()
	if paths == "" {
		paths = e.defaultPath()
	}
	list := splitPaths(paths)
	if len(list) == 0 {
		return ck.fail("could not find any valid magic files!", int(syscall.ENOENT))
	}
	for _, p := range list {
		sigs, ok := ck.readDatabases(p)
		if !ok {
			return -1
		}
		out := p + ".mgc"
		if err := atomic.WriteFile(out, bytes.NewReader(Compiled(sigs))); err != nil {
			return ck.fail(fmt.Sprintf("cannot write `%s' (%s)", out, strerror(err)), errnoOf(err))
		}
	}
	return 0
}

func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return int(syscall.EIO)
}

// strerror renders err the way C's strerror would.
func strerror(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return err.Error()
	}
	s := errno.Error()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
