package bplist

import "atvremote/internal/atverr"

// Archive is the NSKeyedArchiver convention layered on top of a plain
// binary property list: a root dictionary with fixed $version/
// $archiver/$top/$objects fields, where $top maps logical root names
// to a UID and $objects is the backing object table (index 0 is
// always the literal string "$null").
type Archive struct {
	Version  uint64
	Archiver string
	Top      *Dict
	Objects  []interface{}
}

// NewArchive returns an archive ready to have objects appended to it.
func NewArchive(archiver string) *Archive {
	return &Archive{
		Version:  100000,
		Archiver: archiver,
		Top:      NewDict(),
		Objects:  []interface{}{"$null"},
	}
}

// AddObject appends obj to the object table and returns the UID
// referencing it.
func (a *Archive) AddObject(obj interface{}) UID {
	idx := len(a.Objects)
	a.Objects = append(a.Objects, obj)
	return UID(idx)
}

// SetRoot records name -> uid in $top. RTI archives use the single
// root name "root".
func (a *Archive) SetRoot(name string, uid UID) {
	a.Top.Set(name, uid)
}

// Marshal renders the archive as bplist bytes.
func (a *Archive) Marshal() ([]byte, error) {
	root := NewDict()
	root.Set("$version", a.Version)
	root.Set("$archiver", a.Archiver)
	root.Set("$top", a.Top)
	objs := make([]interface{}, len(a.Objects))
	copy(objs, a.Objects)
	root.Set("$objects", objs)
	return Marshal(root)
}

// ParseArchive decodes data as an NSKeyedArchiver bplist.
func ParseArchive(data []byte) (*Archive, error) {
	v, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	root, ok := v.(*Dict)
	if !ok {
		return nil, atverr.Protocol("bplist: archive root is not a dictionary")
	}
	a := &Archive{}
	if version, ok := root.Get("$version"); ok {
		if u, ok := version.(uint64); ok {
			a.Version = u
		}
	}
	if archiver, ok := root.Get("$archiver"); ok {
		if s, ok := archiver.(string); ok {
			a.Archiver = s
		}
	}
	top, ok := root.Get("$top")
	if !ok {
		return nil, atverr.Protocol("bplist: archive missing $top")
	}
	a.Top, ok = top.(*Dict)
	if !ok {
		return nil, atverr.Protocol("bplist: archive $top is not a dictionary")
	}
	objs, ok := root.Get("$objects")
	if !ok {
		return nil, atverr.Protocol("bplist: archive missing $objects")
	}
	a.Objects, ok = objs.([]interface{})
	if !ok {
		return nil, atverr.Protocol("bplist: archive $objects is not an array")
	}
	return a, nil
}

// deref replaces v with $objects[v.value] when v is a UID, otherwise
// returns v unchanged. Reports false on an out-of-range UID.
func (a *Archive) deref(v interface{}) (interface{}, bool) {
	uid, ok := v.(UID)
	if !ok {
		return v, true
	}
	idx := int(uid)
	if idx < 0 || idx >= len(a.Objects) {
		return nil, false
	}
	return a.Objects[idx], true
}

// Resolve walks path starting from the named $top entry, dereferencing
// each hop's UID against $objects before descending into the next
// key. Any missing key, out-of-range UID, or non-dictionary
// intermediate value yields (nil, false) rather than an error: callers
// treat an unexpected archive shape as "value absent", per the
// leniency the text-input path requires across firmware variations.
func (a *Archive) Resolve(rootName string, path ...string) (interface{}, bool) {
	v, ok := a.Top.Get(rootName)
	if !ok {
		return nil, false
	}
	cur, ok := a.deref(v)
	if !ok {
		return nil, false
	}
	for _, key := range path {
		d, ok := cur.(*Dict)
		if !ok {
			return nil, false
		}
		next, ok := d.Get(key)
		if !ok {
			return nil, false
		}
		cur, ok = a.deref(next)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ResolveString is Resolve followed by a string type assertion,
// returning ("", false) on any failure including a non-string result.
func (a *Archive) ResolveString(rootName string, path ...string) (string, bool) {
	v, ok := a.Resolve(rootName, path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
