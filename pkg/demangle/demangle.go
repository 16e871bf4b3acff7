// Package demangle implements the "opaque per-dialect string→string"
// demangling contract spec.md §1 calls out as an external collaborator:
// each dialect is a small, self-contained transform, never a shelled-out
// tool. Dispatch is by name-prefix sniffing, matching how every real
// demangler picks a dialect before it decodes anything.
package demangle

import (
	"strconv"
	"strings"
)

// Dialect identifies a name-mangling scheme.
type Dialect int

const (
	DialectNone Dialect = iota
	DialectItanium
	DialectMSVC
	DialectCodeWarrior
	DialectGNUv2
)

// Sniff guesses the dialect of a mangled name from its prefix, the same
// heuristic every demangler front-end (c++filt, UnDecorateSymbolName,
// ...) uses before attempting a full parse.
func Sniff(name string) Dialect {
	switch {
	case strings.HasPrefix(name, "_Z"):
		return DialectItanium
	case strings.HasPrefix(name, "?"):
		return DialectMSVC
	case strings.Contains(name, "__ct__") || strings.Contains(name, "__dt__"):
		return DialectCodeWarrior
	case strings.Contains(name, "__") && !strings.HasPrefix(name, "_Z"):
		return DialectGNUv2
	}
	return DialectNone
}

// Demangle dispatches name the way original_source/objdiff-core/src/diff/
// demangler.rs's Demangler::Auto does: a name starting with "?" only ever
// means MSVC and a name starting with "_Z" only ever means Itanium, so
// each of those is tried alone; everything else falls through
// CodeWarrior, then GNU v2, returning the first dialect whose transform
// actually succeeds rather than committing to Sniff's single best guess.
// It returns "" when no tried dialect succeeds.
func Demangle(name string) string {
	if strings.HasPrefix(name, "?") {
		out, _ := msvc(name)
		return out
	}
	if strings.HasPrefix(name, "_Z") {
		if out, ok := itanium(name); ok {
			return out
		}
		return ""
	}
	if out, ok := codeWarrior(name); ok {
		return out
	}
	if out, ok := gnuV2(name); ok {
		return out
	}
	return ""
}

// itanium handles the common, substitution-free subset of the Itanium
// C++ ABI mangling: _Z [N] <len><id>... names. Parsing stops at the
// first component that is not <len><id>, so constructor/destructor codes
// (C1/C2/D0/D1/D2) end the name and are not rendered. Template
// arguments, substitutions (S_, S0_, ...) and compressed builtin types
// are intentionally not attempted — those require the full abbreviation
// state machine, which is out of scope for an opaque display helper.
func itanium(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, "_Z")
	if !ok {
		return "", false
	}

	nested := false
	if strings.HasPrefix(rest, "N") {
		nested = true
		rest = rest[1:]
	}

	var parts []string
	for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
		n := 0
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			n = n*10 + int(rest[i]-'0')
			i++
		}
		rest = rest[i:]
		if n <= 0 || n > len(rest) {
			return "", false
		}
		part := rest[:n]
		rest = rest[n:]
		parts = append(parts, expandSpecial(part))
		if !nested {
			break
		}
		if strings.HasPrefix(rest, "E") {
			rest = rest[1:]
			break
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "::") + "()", true
}

func expandSpecial(part string) string {
	switch part {
	case "C1", "C2", "C3":
		return part // caller prefixes with the class name via ::
	case "D0", "D1", "D2":
		return "~" + part
	}
	return part
}

// msvc handles only the name-fragment portion of MSVC's "?name@@..."
// scheme: the qualifiers after the second @@ describe calling
// convention/access and are rendered as an opaque suffix rather than
// fully decoded.
func msvc(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, "?")
	if !ok {
		return "", false
	}
	idx := strings.Index(rest, "@@")
	if idx < 0 {
		return "", false
	}
	base := rest[:idx]
	base = strings.ReplaceAll(base, "@", "::")
	return base + "()", true
}

// codeWarrior handles the MetroWerks CodeWarrior convention used by
// GameCube/Wii-era PowerPC toolchains: "Class__ct__FParams" style names
// with __ct__/__dt__ reserved for constructors/destructors.
func codeWarrior(name string) (string, bool) {
	for _, marker := range []string{"__ct__", "__dt__"} {
		if idx := strings.Index(name, marker); idx > 0 {
			class := name[:idx]
			if marker == "__dt__" {
				return class + "::~" + class + "()", true
			}
			return class + "::" + class + "()", true
		}
	}
	return "", false
}

// gnuV2 handles the pre-Itanium GNU "name__Class" / "name__F<args>"
// style: split on the last "__" and drop the parameter encoding.
func gnuV2(name string) (string, bool) {
	idx := strings.LastIndex(name, "__")
	if idx <= 0 {
		return "", false
	}
	fn := name[:idx]
	rest := name[idx+2:]
	if rest == "" {
		return "", false
	}
	if _, err := strconv.Atoi(rest[:min(1, len(rest))]); err == nil {
		// name__<N><class> — member function
		return fn + "()", true
	}
	return fn + "()", true
}
