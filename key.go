package assetram

import (
	"fmt"
	"net/url"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
)

// CallSite identifies where in the calling code a cache lookup textually occurs.
type CallSite struct {
	File string
	Line int
}

// Site returns an explicit call site. Use it when the identity must survive
// refactors that move code around, or in generated code.
//
// file is written verbatim into external keys. A file ending in "/<digits>"
// can alias another site's file and line there (Site("f/1", 3) and
// Site("f", 1) with discriminator "3"); positions from runtime.Caller end in
// ".go" and never do.
func Site(file string, line int) CallSite {
	return CallSite{File: file, Line: line}
}

// Named returns a call site identified by a stable name instead of a source
// position. Named sites never collide with positional ones in memory (Line is
// 0). Keep names free of "/" so external keys stay unambiguous.
func Named(name string) CallSite {
	return CallSite{File: name}
}

// Caller returns the call site of the function that called Caller's caller,
// skip frames further up. Caller(0) inside a helper identifies the helper's caller.
func Caller(skip int) CallSite {
	return callerSite(skip + 1)
}

// callerSite resolves runtime.Caller(skip+1), so skip=0 is the caller of the
// function invoking callerSite.
func callerSite(skip int) CallSite {
	_, file, line, ok := runtime.Caller(skip + 2)
	if !ok {
		return CallSite{File: "unknown"}
	}
	return CallSite{File: filepath.ToSlash(file), Line: line}
}

func (s CallSite) String() string {
	if s.Line == 0 {
		return s.File
	}
	return s.File + ":" + strconv.Itoa(s.Line)
}

// Key identifies one cached value: a call site plus an optional discriminator.
// Keys are comparable and used directly as map keys.
type Key struct {
	Site          CallSite
	Discriminator string
}

// BuildKey derives a key from a call site and an optional discriminator.
// A nil (including a typed nil pointer) or empty discriminator contributes
// nothing, so BuildKey(s, nil), BuildKey(s, "") and BuildKey(s, (*T)(nil))
// are equal. Any other value is rendered with fmt.Sprint.
func BuildKey(site CallSite, discriminator any) Key {
	return Key{Site: site, Discriminator: discriminatorString(discriminator)}
}

func discriminatorString(d any) string {
	switch v := d.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	if rv := reflect.ValueOf(d); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return ""
	}
	return fmt.Sprint(d)
}

// Parts returns (file, line[, discriminator]).
func (k Key) Parts() []string {
	parts := make([]string, 0, 3)
	parts = append(parts, k.Site.File, strconv.Itoa(k.Site.Line))
	if k.Discriminator != "" {
		parts = append(parts, k.Discriminator)
	}
	return parts
}

// storageParts is Parts with the discriminator path-escaped, so a "/" inside
// it cannot shift the boundary between line and discriminator in an
// external key.
func (k Key) storageParts() []string {
	parts := k.Parts()
	if k.Discriminator != "" {
		parts[2] = url.PathEscape(k.Discriminator)
	}
	return parts
}

func (k Key) String() string {
	if k.Discriminator == "" {
		return k.Site.String()
	}
	return k.Site.String() + " [" + k.Discriminator + "]"
}

// flightKey is an unambiguous encoding of k for singleflight.
// String() is for humans and may collide when paths contain separators.
func (k Key) flightKey() string {
	return strconv.Quote(k.Site.File) + ":" + strconv.Itoa(k.Site.Line) + ":" + strconv.Quote(k.Discriminator)
}
