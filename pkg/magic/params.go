package magic

import (
	"fmt"
	"strconv"
	"strings"
)

// Param identifies a numeric engine limit. The values are libmagic's
// MAGIC_PARAM_* tags.
type Param int

const (
	ParamIndirMax     Param = 0 // recursion limit for indirect magic
	ParamNameMax      Param = 1 // use count limit for name/use magic
	ParamElfPhnumMax  Param = 2 // max ELF program sections processed
	ParamElfShnumMax  Param = 3 // max ELF sections processed
	ParamElfNotesMax  Param = 4 // max ELF notes processed
	ParamRegexMax     Param = 5 // length limit for regex searches
	ParamBytesMax     Param = 6 // max number of bytes to read from file
	ParamEncodingMax  Param = 7 // max number of bytes to scan for encoding
	ParamElfShsizeMax Param = 8 // max ELF section size to process
	ParamMagwarnMax   Param = 9 // max number of warnings before giving up
)

var paramInfo = []struct {
	param      Param
	name       string
	minVersion int
}{
	{ParamIndirMax, "indir_max", 521},
	{ParamNameMax, "name_max", 521},
	{ParamElfPhnumMax, "elf_phnum_max", 521},
	{ParamElfShnumMax, "elf_shnum_max", 521},
	{ParamElfNotesMax, "elf_notes_max", 522},
	{ParamRegexMax, "regex_max", 526},
	{ParamBytesMax, "bytes_max", 527},
	{ParamEncodingMax, "encoding_max", 540},
	{ParamElfShsizeMax, "elf_shsize_max", 545},
	{ParamMagwarnMax, "magwarn_max", 545},
}

// Params returns every recognized parameter tag in tag order.
func Params() []Param {
	out := make([]Param, len(paramInfo))
	for i, pi := range paramInfo {
		out[i] = pi.param
	}
	return out
}

func (p Param) valid() bool { return p >= ParamIndirMax && int(p) < len(paramInfo) }

func (p Param) supportedBy(version int) bool {
	return p.valid() && (version == 0 || version >= paramInfo[p].minVersion)
}

func (p Param) String() string {
	if !p.valid() {
		return "param(" + strconv.Itoa(int(p)) + ")"
	}
	return paramInfo[p].name
}

// ParseParam resolves a parameter by name ("regex_max", "MAGIC_PARAM_REGEX_MAX")
// or by numeric tag.
func ParseParam(s string) (Param, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "magic_")
	name = strings.TrimPrefix(name, "param_")
	for _, pi := range paramInfo {
		if pi.name == name {
			return pi.param, nil
		}
	}
	if n, err := strconv.Atoi(name); err == nil && Param(n).valid() {
		return Param(n), nil
	}
	return 0, parameterError(ReasonInvalidType, "%q", s)
}

// ParseParamAssignment parses "name=value".
func ParseParamAssignment(s string) (Param, uint64, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return 0, 0, argumentError("parameter %q: expected name=value", s)
	}
	p, err := ParseParam(name)
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(value), 0, 64)
	if err != nil {
		return 0, 0, parameterError(ReasonInvalidValue, "%s=%q", p, value)
	}
	return p, v, nil
}

// Parameter returns the current value of p.
func (m *Magic) Parameter(p Param) (uint64, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}
	if !p.valid() {
		return 0, parameterError(ReasonInvalidType, "tag %d", int(p))
	}
	var out uint64
	err := m.withLock(requireOpen, func(e Engine, c Cookie) error {
		v, rc := e.Param(c, int(p))
		if rc < 0 {
			return parameterError(ReasonInvalidType, "%s", p)
		}
		out = v
		return nil
	})
	return out, err
}

// SetParameter changes p for this handle only.
func (m *Magic) SetParameter(p Param, value uint64) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if !p.valid() {
		return parameterError(ReasonInvalidType, "tag %d", int(p))
	}
	err := m.withLock(requireOpen, func(e Engine, c Cookie) error {
		if e.SetParam(c, int(p), value) < 0 {
			return parameterError(ReasonInvalidValue, "%s=%d", p, value)
		}
		return nil
	})
	if err == nil {
		m.debug("parameter updated", "param", p.String(), "value", value)
	}
	return err
}

// Parameters returns every parameter the linked engine supports, read
// under a single lock acquisition. Tags the engine refuses are left out.
func (m *Magic) Parameters() (map[Param]uint64, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	out := make(map[Param]uint64, len(paramInfo))
	err := m.withLock(requireOpen, func(e Engine, c Cookie) error {
		for _, p := range Params() {
			if !p.supportedBy(m.version) {
				continue
			}
			v, rc := e.Param(c, int(p))
			if rc < 0 {
				continue
			}
			out[p] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// applyParameters validates every tag, then sets each value in tag order,
// stopping at the first failure.
func (m *Magic) applyParameters(params map[Param]uint64) error {
	for p := range params {
		if !p.valid() {
			return parameterError(ReasonInvalidType, "tag %d", int(p))
		}
	}
	for _, p := range Params() {
		v, ok := params[p]
		if !ok {
			continue
		}
		if err := m.SetParameter(p, v); err != nil {
			return fmt.Errorf("apply %s: %w", p, err)
		}
	}
	return nil
}
