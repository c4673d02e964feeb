package store

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindList
	KindHash
	KindSet
	KindZSet
)

// String returns the type tag reported by TYPE.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindHash:
		return "hash"
	case KindSet:
		return "set"
	case KindZSet:
		return "zset"
	default:
		return "none"
	}
}

// Value is a closed union over the five value types. Exactly one of the
// payload fields is set, matching kind. The variant of a stored Value never
// changes; a key must be deleted before it can hold a different kind.
type Value struct {
	kind Kind
	str  []byte
	list *List
	hash *Hash
	set  *Set
	zset *SortedSet
}

// StringValue wraps b (copied) as a string value.
func StringValue(b []byte) Value {
	return Value{kind: KindString, str: cloneBytes(b)}
}

// ListValue wraps l as a list value.
func ListValue(l *List) Value { return Value{kind: KindList, list: l} }

// HashValue wraps h as a hash value.
func HashValue(h *Hash) Value { return Value{kind: KindHash, hash: h} }

// SetValue wraps s as a set value.
func SetValue(s *Set) Value { return Value{kind: KindSet, set: s} }

// ZSetValue wraps z as a sorted set value.
func ZSetValue(z *SortedSet) Value { return Value{kind: KindZSet, zset: z} }

func (v Value) Kind() Kind { return v.kind }

// Str returns the raw string payload. The slice must not be modified.
func (v Value) Str() []byte { return v.str }

func (v Value) List() *List { return v.list }

func (v Value) Hash() *Hash { return v.hash }

func (v Value) Set() *Set { return v.set }

func (v Value) ZSet() *SortedSet { return v.zset }

// Elements returns the number of elements that releasing v would free.
// Strings count as a single element.
func (v Value) Elements() int {
	switch v.kind {
	case KindList:
		return v.list.Len()
	case KindHash:
		return v.hash.Len()
	case KindSet:
		return v.set.Card()
	case KindZSet:
		return v.zset.Card()
	case KindString:
		return 1
	default:
		return 0
	}
}

// Empty reports whether v is a container with no elements left.
func (v Value) Empty() bool {
	return v.kind != KindString && v.kind != KindNone && v.Elements() == 0
}

// release drops every reference held by the container so its storage can be
// collected independently of whoever still holds the Value.
func (v Value) release() {
	switch v.kind {
	case KindList:
		v.list.clear()
	case KindHash:
		v.hash.clear()
	case KindSet:
		v.set.clear()
	case KindZSet:
		v.zset.clear()
	}
}
