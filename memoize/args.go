package memoize

// KeyDataProvider lets an argument type decide the data its cache key is
// derived from.
type KeyDataProvider interface {
	KeyData() any
}

// Args is a generic argument list with positional and keyword parts. Its
// key data is [positional, keyword]; keyword order never affects the key.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Positional builds an Args from positional values only.
func Positional(values ...any) Args {
	return Args{Positional: values}
}

// With returns a copy of a with the keyword argument set.
func (a Args) With(name string, value any) Args {
	kw := make(map[string]any, len(a.Keyword)+1)
	for k, v := range a.Keyword {
		kw[k] = v
	}
	kw[name] = value
	return Args{Positional: a.Positional, Keyword: kw}
}

// KeyData returns [positional, keyword] with nil parts replaced by empty ones.
func (a Args) KeyData() any {
	pos := a.Positional
	if pos == nil {
		pos = []any{}
	}
	kw := a.Keyword
	if kw == nil {
		kw = map[string]any{}
	}
	return []any{pos, kw}
}

// keyDataOf treats any argument that is not a KeyDataProvider as a single
// positional argument.
func keyDataOf(arg any) any {
	if p, ok := arg.(KeyDataProvider); ok {
		return p.KeyData()
	}
	return []any{[]any{arg}, map[string]any{}}
}
