package magictest

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
)

var (
	emptyResult = Signature{Description: "empty", MIME: "application/x-empty", Encoding: "binary"}
	dataResult  = Signature{Description: "data", MIME: "application/octet-stream", Encoding: "binary"}
	textResult  = Signature{Description: "ASCII text", MIME: "text/plain", Encoding: "us-ascii"}
	dirResult   = Signature{Description: "directory", MIME: "inode/directory", Encoding: "binary"}
	fifoResult  = Signature{Description: "fifo (named pipe)", MIME: "inode/fifo", Encoding: "binary"}
	charResult  = Signature{Description: "character special", MIME: "inode/chardevice", Encoding: "binary"}
	blockResult = Signature{Description: "block special", MIME: "inode/blockdevice", Encoding: "binary"}
)

func (e *Engine) File(c magic.Cookie, path string) (string, bool) {
	ck, done := e.enter("File", c)
	defer done()
	if ck == nil {
		return "", false
	}
	ck.clear()

	stat := os.Lstat
	if ck.flags&magic.Symlink != 0 {
		stat = os.Stat
	}
	info, err := stat(path)
	if err != nil {
		return ck.cannotOpen(path, err)
	}
	switch mode := info.Mode(); {
	case mode.IsDir():
		return ck.render([]Signature{dirResult}), true
	case mode&fs.ModeSymlink != 0:
		target, _ := os.Readlink(path)
		return ck.render([]Signature{{
			Description: "symbolic link to " + target,
			MIME:        "inode/symlink",
			Encoding:    "binary",
		}}), true
	case mode&fs.ModeNamedPipe != 0:
		return ck.render([]Signature{fifoResult}), true
	case mode&fs.ModeDevice != 0 && ck.flags&magic.Devices == 0:
		if mode&fs.ModeCharDevice != 0 {
			return ck.render([]Signature{charResult}), true
		}
		return ck.render([]Signature{blockResult}), true
	}

	f, err := os.Open(path)
	if err != nil {
		return ck.cannotOpen(path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, int64(ck.params[magic.ParamBytesMax])))
	if err != nil {
		ck.fail(fmt.Sprintf("cannot read `%s' (%s)", path, strerror(err)), errnoOf(err))
		return "", false
	}
	return ck.classify(b), true
}

// cannotOpen follows libmagic: without HardErrors a missing file is a
// result, not an error.
func (ck *cookie) cannotOpen(path string, err error) (string, bool) {
	msg := fmt.Sprintf("cannot open `%s' (%s)", path, strerror(err))
	if ck.flags&magic.HardErrors != 0 {
		ck.fail(msg, errnoOf(err))
		return "", false
	}
	return msg, true
}

func (e *Engine) Buffer(c magic.Cookie, b []byte) (string, bool) {
	ck, done := e.enter("Buffer", c)
	defer done()
	if ck == nil {
		return "", false
	}
	ck.clear()
	if limit := ck.params[magic.ParamBytesMax]; uint64(len(b)) > limit {
		b = b[:limit]
	}
	return ck.classify(b), true
}

func (e *Engine) Descriptor(c magic.Cookie, fd int) (string, bool) {
	ck, done := e.enter("Descriptor", c)
	defer done()
	if ck == nil {
		return "", false
	}
	ck.clear()
	b, err := readDescriptor(fd, int(ck.params[magic.ParamBytesMax]))
	if err != nil {
		ck.fail(fmt.Sprintf("cannot read fd %d (%s)", fd, strerror(err)), errnoOf(err))
		return "", false
	}
	return ck.classify(b), true
}

func (ck *cookie) classify(b []byte) string {
	if len(b) == 0 {
		return ck.render([]Signature{emptyResult})
	}
	var matches []Signature
	for _, s := range ck.sigs {
		if !s.matches(b) {
			continue
		}
		matches = append(matches, s)
		if ck.flags&magic.Continue == 0 {
			break
		}
	}
	if len(matches) == 0 {
		if isText(b) {
			return ck.render([]Signature{textResult})
		}
		return ck.render([]Signature{dataResult})
	}
	for _, s := range matches {
		if s.Warning != "" {
			ck.errMsg = s.Warning
			break
		}
	}
	return ck.render(matches)
}

// render formats matches according to the cookie's output flags.
func (ck *cookie) render(matches []Signature) string {
	parts := make([]string, len(matches))
	for i, s := range matches {
		parts[i] = ck.format(s)
	}
	return strings.Join(parts, "\n- ")
}

func (ck *cookie) format(s Signature) string {
	mime := s.MIME
	if mime == "" {
		mime = dataResult.MIME
	}
	enc := s.Encoding
	if enc == "" {
		enc = "binary"
	}
	switch f := ck.flags; {
	case f&magic.Extension != 0:
		if s.Extension == "" {
			return "???"
		}
		return s.Extension
	case f&magic.Mime == magic.Mime:
		return mime + "; charset=" + enc
	case f&magic.MimeType != 0:
		return mime
	case f&magic.MimeEncoding != 0:
		return enc
	case f&magic.Apple != 0:
		return "UNKNUNKN"
	case f&magic.Raw != 0:
		return s.Description
	default:
		return escape(s.Description)
	}
}

// escape renders non-printable bytes as octal escapes, as libmagic does
// without MAGIC_RAW.
func escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c >= 0x7f {
			fmt.Fprintf(&b, "\\%03o", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isText(b []byte) bool {
	for _, c := range b {
		switch {
		case c == '\n' || c == '\r' || c == '\t' || c == '\f':
		case c < 0x20 || c >= 0x7f:
			return false
		}
	}
	return true
}
