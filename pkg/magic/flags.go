package magic

import (
	"sort"
	"strconv"
	"strings"
	"syscall"
)

// Flags is the detection-mode bitmask. The named bits mirror libmagic's
// MAGIC_* constants.
type Flags int

const (
	None           Flags = 0x0000000
	Debug          Flags = 0x0000001 // print debugging messages to stderr
	Symlink        Flags = 0x0000002 // follow symlinks
	Compress       Flags = 0x0000004 // look inside compressed files
	Devices        Flags = 0x0000008 // look at the contents of devices
	MimeType       Flags = 0x0000010 // return the MIME type
	Continue       Flags = 0x0000020 // return all matches
	Check          Flags = 0x0000040 // print warnings to stderr
	PreserveAtime  Flags = 0x0000080 // restore access time on exit
	Raw            Flags = 0x0000100 // don't convert unprintable chars
	HardErrors     Flags = 0x0000200 // handle ENOENT etc as real errors (MAGIC_ERROR)
	MimeEncoding   Flags = 0x0000400 // return the MIME encoding
	Mime                 = MimeType | MimeEncoding
	Apple          Flags = 0x0000800 // return the Apple creator/type
	Extension      Flags = 0x1000000 // return a /-separated list of extensions
	CompressTransp Flags = 0x2000000 // check inside compressed files but not report compression
	NoCompressFork Flags = 0x4000000 // don't allow decompression that needs to fork
	NoDesc               = Extension | Mime | Apple

	NoCheckCompress Flags = 0x0001000
	NoCheckTar      Flags = 0x0002000
	NoCheckSoft     Flags = 0x0004000
	NoCheckApptype  Flags = 0x0008000
	NoCheckElf      Flags = 0x0010000
	NoCheckText     Flags = 0x0020000
	NoCheckCdf      Flags = 0x0040000
	NoCheckCsv      Flags = 0x0080000
	NoCheckTokens   Flags = 0x0100000
	NoCheckEncoding Flags = 0x0200000
	NoCheckJSON     Flags = 0x0400000
	NoCheckSimh     Flags = 0x0800000
	NoCheckBuiltin  Flags = 0x0ffb000
)

type flagInfo struct {
	flag       Flags
	name       string
	minVersion int
}

// knownFlags lists every single-bit flag with the first libmagic release
// that implements it.
var knownFlags = []flagInfo{
	{Debug, "debug", 500},
	{Symlink, "symlink", 500},
	{Compress, "compress", 500},
	{Devices, "devices", 500},
	{MimeType, "mime_type", 500},
	{Continue, "continue", 500},
	{Check, "check", 500},
	{PreserveAtime, "preserve_atime", 500},
	{Raw, "raw", 500},
	{HardErrors, "error", 500},
	{MimeEncoding, "mime_encoding", 500},
	{Apple, "apple", 505},
	{NoCheckCompress, "no_check_compress", 500},
	{NoCheckTar, "no_check_tar", 500},
	{NoCheckSoft, "no_check_soft", 500},
	{NoCheckApptype, "no_check_apptype", 500},
	{NoCheckElf, "no_check_elf", 500},
	{NoCheckText, "no_check_text", 500},
	{NoCheckCdf, "no_check_cdf", 500},
	{NoCheckTokens, "no_check_tokens", 500},
	{NoCheckEncoding, "no_check_encoding", 506},
	{Extension, "extension", 523},
	{CompressTransp, "compress_transp", 525},
	{NoCheckJSON, "no_check_json", 535},
	{NoCheckCsv, "no_check_csv", 538},
	{NoCheckSimh, "no_check_simh", 540},
	{NoCompressFork, "no_compress_fork", 544},
}

// composite names accepted by ParseFlags.
var compositeFlags = map[string]Flags{
	"none":             None,
	"mime":             Mime,
	"nodesc":           NoDesc,
	"no_check_builtin": NoCheckBuiltin,
}

// KnownFlags is the union of every flag bit this package recognizes.
var KnownFlags = func() Flags {
	var f Flags
	for _, fi := range knownFlags {
		f |= fi.flag
	}
	return f
}()

// unknown returns the bits of f this package does not recognize.
func (f Flags) unknown() Flags { return f &^ KnownFlags }

// unsupported returns the recognized bits of f that an engine of the given
// version does not implement.
func (f Flags) unsupported(version int) Flags {
	var out Flags
	for _, fi := range knownFlags {
		if f&fi.flag != 0 && version != 0 && version < fi.minVersion {
			out |= fi.flag
		}
	}
	return out
}

// Names returns the names of the bits set in f, in bit order.
func (f Flags) Names() []string {
	infos := make([]flagInfo, len(knownFlags))
	copy(infos, knownFlags)
	sort.Slice(infos, func(i, j int) bool { return infos[i].flag < infos[j].flag })

	var names []string
	for _, fi := range infos {
		if f&fi.flag != 0 {
			names = append(names, fi.name)
		}
	}
	if rest := f.unknown(); rest != 0 {
		names = append(names, "0x"+strconv.FormatInt(int64(rest), 16))
	}
	return names
}

func (f Flags) String() string {
	if f == None {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

// ParseFlags parses a list of flag names separated by '|', ',' or spaces,
// e.g. "mime_type|symlink". Integer literals are accepted as well.
func ParseFlags(s string) (Flags, error) {
	var out Flags
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == ' ' || r == '\t'
	})
	for _, field := range fields {
		name := strings.ToLower(strings.TrimSpace(field))
		name = strings.TrimPrefix(name, "magic_")
		if f, ok := compositeFlags[name]; ok {
			out |= f
			continue
		}
		if f, ok := flagByName(name); ok {
			out |= f
			continue
		}
		if n, err := strconv.ParseInt(name, 0, 64); err == nil {
			out |= Flags(n)
			continue
		}
		return 0, flagsError(ReasonInvalidType, "%q", field)
	}
	return out, nil
}

func flagByName(name string) (Flags, bool) {
	for _, fi := range knownFlags {
		if fi.name == name {
			return fi.flag, true
		}
	}
	return 0, false
}

// validateFlags rejects values before any native call: unknown bits are an
// invalid type, recognized bits newer than the engine are not implemented.
func validateFlags(f Flags, version int) error {
	if f < 0 {
		return flagsError(ReasonInvalidType, "negative value %d", int(f))
	}
	if rest := f.unknown(); rest != 0 {
		return flagsError(ReasonInvalidType, "0x%x", int(rest))
	}
	if rest := f.unsupported(version); rest != 0 {
		return flagsError(ReasonNotImplemented, "%s requires a newer libmagic than %s", rest, FormatVersion(version))
	}
	return nil
}

// Flags returns the current detection-mode bitmask.
func (m *Magic) Flags() (Flags, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}
	var out Flags
	err := m.withLock(requireOpen, func(e Engine, c Cookie) error {
		v := e.Flags(c)
		if v < 0 {
			return nativeError(e, c)
		}
		out = Flags(v)
		return nil
	})
	return out, err
}

// SetFlags replaces the detection-mode bitmask. The new flags apply to
// every later detection on this handle.
func (m *Magic) SetFlags(f Flags) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if err := validateFlags(f, m.version); err != nil {
		return err
	}
	err := m.withLock(requireOpen, func(e Engine, c Cookie) error {
		if e.SetFlags(c, int(f)) < 0 {
			if e.Errno(c) == int(syscall.EINVAL) {
				return flagsError(ReasonInvalidType, "%s", f)
			}
			return flagsError(ReasonNotImplemented, "%s", f)
		}
		return nil
	})
	if err == nil {
		m.debug("flags updated", "flags", f.String())
	}
	return err
}
