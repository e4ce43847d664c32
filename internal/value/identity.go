package value

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// identityRegistry mints a stable, printable id the first time a given
// heap allocation is asked for one, and returns the same id on every
// later ask. Used by the cycle-safe display tracker to label an
// already-visited List/Map/Object with something more useful than a
// raw pointer address once printed, and exposed to scripts under
// corelib's "__object_id" native.
var (
	identityMu  sync.Mutex
	identityIDs = map[uintptr]string{}
)

// ObjectID returns v's identity label and whether v is a type that
// carries one. Only the heap-allocated, reference-identity variants
// (List, Map, Object) qualify — scalars and Tuples/Functions compare
// and print by value, not by identity.
func ObjectID(v Value) (string, bool) {
	addr, ok := identityAddr(v)
	if !ok {
		return "", false
	}
	identityMu.Lock()
	defer identityMu.Unlock()
	id, ok := identityIDs[addr]
	if !ok {
		id = uuid.NewString()
		identityIDs[addr] = id
	}
	return id, true
}

func identityAddr(v Value) (uintptr, bool) {
	switch v.Tag {
	case TagList:
		return v.List().Addr(), true
	case TagMap:
		return v.Map().Addr(), true
	case TagObject:
		if o, ok := v.Obj.(Object); ok {
			return objectAddr(o), true
		}
	}
	return 0, false
}

// objectAddr extracts a stable pointer value from an Object
// implementation. Every Object in this runtime is backed by a pointer
// receiver (spec §4.9's external-object convention), so reflect's
// Pointer() is always valid here.
func objectAddr(o Object) uintptr {
	rv := reflect.ValueOf(o)
	if rv.Kind() == reflect.Ptr {
		return rv.Pointer()
	}
	return 0
}
