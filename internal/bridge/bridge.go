// Package bridge implements the expression bridge of spec §4.2: pushing
// YAML scalars and aggregates into the expression runtime's value universe,
// invoking named functions or ad hoc expressions, and introspecting the
// value left on top of the runtime's stack.
//
// The expression runtime is Lua, via github.com/yuin/gopher-lua — the Go
// analogue of original_source's embedded Lua (lua.h/lauxlib.h/lualib.h):
// same push/pop stack discipline, same table-as-array-or-map value, same
// protected-call error model.
package bridge

import (
	"fmt"
	"math"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/resolve"
	"github.com/willabides/yl/internal/yamlh"
)

// Kind is the top-of-stack value's classification, per §3 Value (ii).
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMapping
	KindVoid
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindVoid:
		return "void"
	default:
		return "unknown"
	}
}

// voidValue is the process-wide VOID sentinel of §3: a unique LValue
// distinguishing "no output" from "null". Identity (pointer equality)
// is what makes it distinguishable from any value a user expression
// could construct.
var voidValue = &lua.LUserData{}

// Bridge wraps a single Lua state, loaded with the safe-library subset of
// §4.2 and original_source/environment.c: table, string, math, and a
// trimmed base library with dofile/load/loadfile/require removed.
type Bridge struct {
	L *lua.LState
}

// New creates a Bridge with a freshly initialized, safely-sandboxed Lua
// state. Per §9 "Global state isolation", the caller owns the returned
// Bridge's lifetime and must call Close when done; handles are never
// cached across engine instances.
func New() *Bridge {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	loadSafeLibraries(L)
	// Expose the VOID sentinel as a global so user-defined functions can
	// return it (e.g. `function skip() return void end`); there is no
	// other way for expression-level code to produce a value that
	// compares equal to push_void()'s result.
	L.SetGlobal("void", voidValue)
	return &Bridge{L: L}
}

// Close tears down the Lua state.
func (b *Bridge) Close() {
	b.L.Close()
}

func loadSafeLibraries(L *lua.LState) {
	for _, pair := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.BaseLibName, lua.OpenBase},
	} {
		L.Push(L.NewFunction(pair.fn))
		L.Push(lua.LString(pair.name))
		_ = L.PCall(1, 0, nil)
	}
	// Remove unsafe functions from the base library, per
	// original_source/environment.c yl_load_safe_libraries.
	for _, unsafe := range []string{"dofile", "load", "loadfile", "loadstring", "require", "collectgarbage"} {
		L.SetGlobal(unsafe, lua.LNil)
	}
}

// reserveHeadroom corresponds to §5's "reserve a fixed headroom (>= 10
// slots) before any call that may recurse into expression-level closures".
// gopher-lua's stack is a Go slice that grows on demand, so there is no
// fixed-capacity check to make here; the call exists to mark the call
// sites the original's lua_checkstack discipline requires.
func (b *Bridge) reserveHeadroom(pos errs.Position) *errs.Error {
	_ = pos
	return nil
}

// --- push operations (§4.2) ---

func (b *Bridge) PushNil()          { b.L.Push(lua.LNil) }
func (b *Bridge) PushVoid()         { b.L.Push(voidValue) }
func (b *Bridge) PushBool(v bool)   { b.L.Push(lua.LBool(v)) }
func (b *Bridge) PushInt(v int64)   { b.L.Push(lua.LNumber(v)) }
func (b *Bridge) PushFloat(v float64) { b.L.Push(lua.LNumber(v)) }
func (b *Bridge) PushString(v []byte) { b.L.Push(lua.LString(string(v))) }

// PushScalar converts a YAML scalar literal to a value, per §4.2. Plain
// style applies YAML-1.1-lite coercion (null/bool/int/float/string, in
// that order); any quoted or literal/folded style is pushed as a string
// verbatim.
func (b *Bridge) PushScalar(style yamlh.YamlScalarStyle, value []byte) {
	if style != yamlh.PLAIN_SCALAR_STYLE && style != yamlh.ANY_SCALAR_STYLE {
		b.PushString(value)
		return
	}
	kind, v := resolve.ClassifyPlain(string(value))
	switch kind {
	case resolve.KindNull:
		b.PushNil()
	case resolve.KindBool:
		b.PushBool(v.(bool))
	case resolve.KindInt:
		b.PushInt(v.(int64))
	case resolve.KindFloat:
		b.PushFloat(v.(float64))
	default:
		b.PushString(value)
	}
}

// --- aggregate construction (§4.2, §4.3) ---

// BeginTable pushes a new, empty table onto the stack — the target of a
// subsequent sequence of SetByKey/SetByIndex calls.
func (b *Bridge) BeginTable() {
	b.L.Push(b.L.NewTable())
}

// SetByKey pops the value on top of the stack and assigns it into the
// table beneath it under the given string key, leaving the table on top.
func (b *Bridge) SetByKey(key string) {
	v := b.L.Get(-1)
	b.L.Pop(1)
	tbl := b.L.Get(-1).(*lua.LTable)
	tbl.RawSetString(key, v)
}

// SetByIndex pops the value on top of the stack and assigns it into the
// table beneath it at the given 1-based integer index, leaving the table
// on top.
func (b *Bridge) SetByIndex(index int) {
	v := b.L.Get(-1)
	b.L.Pop(1)
	tbl := b.L.Get(-1).(*lua.LTable)
	tbl.RawSetInt(index, v)
}

// SetPair pops a value and, below it, a key (in that order, top to
// bottom) and assigns table[key] = value into the table now exposed on
// top of the stack. Used by the tree builder to pair up a mapping's
// alternating key/value children, where the key may be any value kind
// the runtime supports, not just a string.
func (b *Bridge) SetPair() {
	value := b.L.Get(-1)
	key := b.L.Get(-2)
	b.L.Pop(2)
	tbl := b.L.Get(-1).(*lua.LTable)
	tbl.RawSet(key, value)
}

// --- invocation (§4.2) ---

// Eval compiles and evaluates expr, requiring exactly one resulting value,
// which is left on top of the stack.
func (b *Bridge) Eval(expr string, pos errs.Position) *errs.Error {
	if err := b.reserveHeadroom(pos); err != nil {
		return err
	}
	fn, err := b.L.LoadString(fmt.Sprintf("return (%s);", expr))
	if err != nil {
		return luaCompileError(err, pos)
	}
	b.L.Push(fn)
	if err := b.L.PCall(0, 1, b.tracebackHandler()); err != nil {
		return luaRuntimeError(err, pos)
	}
	return nil
}

// CallFunction invokes the function named by name. Resolution: first a
// global lookup; if absent, name is compiled and evaluated as an
// expression and the result must be a function. It is applied to the top
// argc stack values (in push order), leaving a single result on the stack.
func (b *Bridge) CallFunction(name string, argc int, pos errs.Position) *errs.Error {
	if err := b.reserveHeadroom(pos); err != nil {
		return err
	}

	args := make([]lua.LValue, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = b.L.Get(-1)
		b.L.Pop(1)
	}

	fn := b.L.GetGlobal(name)
	if fn == lua.LNil {
		loaded, err := b.L.LoadString(fmt.Sprintf("return (%s);", name))
		if err != nil {
			return luaCompileError(err, pos)
		}
		b.L.Push(loaded)
		if err := b.L.PCall(0, 1, b.tracebackHandler()); err != nil {
			return luaRuntimeError(err, pos)
		}
		fn = b.L.Get(-1)
		b.L.Pop(1)
	}

	if _, ok := fn.(*lua.LFunction); !ok {
		return errs.New(errs.Runtime, pos, "while calling a function", fmt.Sprintf("expected `%s` to be a function, but instead got %s", name, fn.Type().String()))
	}

	b.L.Push(fn)
	for _, a := range args {
		b.L.Push(a)
	}
	if err := b.L.PCall(argc, 1, b.tracebackHandler()); err != nil {
		return luaRuntimeError(err, pos)
	}
	return nil
}

// maxTracebackLevels bounds the walk over L.Where, matching
// luaL_traceback's own truncation of very deep stacks.
const maxTracebackLevels = 32

// tracebackHandler is the PCall message handler installed on every
// protected call, mirroring original_source/lua_helpers.c's
// yl_lua_error_handler (itself a luaL_traceback(L, L, msg, 1) call): it
// augments the raw error message with the Lua call stack at the point of
// the error, one "chunkname:line:" entry per frame.
func (b *Bridge) tracebackHandler() *lua.LFunction {
	return b.L.NewFunction(func(L *lua.LState) int {
		msg := L.ToString(1)
		var trace strings.Builder
		trace.WriteString(msg)
		trace.WriteString("\nstack traceback:")
		for level := 0; level < maxTracebackLevels; level++ {
			where := L.Where(level)
			if where == "" {
				break
			}
			trace.WriteString("\n\t")
			trace.WriteString(where)
		}
		L.Push(lua.LString(trace.String()))
		return 1
	})
}

func luaCompileError(err error, pos errs.Position) *errs.Error {
	return errs.New(errs.Syntax, pos, "while compiling an expression", err.Error())
}

func luaRuntimeError(err error, pos errs.Position) *errs.Error {
	kind := errs.Runtime
	if apiErr, ok := err.(*lua.ApiError); ok {
		switch apiErr.Type {
		case lua.ApiErrorSyntaxError:
			kind = errs.Syntax
		case lua.ApiErrorRuntimeError:
			kind = errs.Runtime
		case lua.ApiErrorError:
			kind = errs.ErrorHandler
		case lua.ApiErrorFile:
			kind = errs.Memory
		}
	}
	return errs.New(kind, pos, "while evaluating an expression", err.Error())
}

// --- introspection (§4.2, §3) ---

// Kind classifies the top-of-stack value. gopher-lua's LNumber is a single
// float64 type with no Lua-5.3-style integer subtype; a number with zero
// fractional part is classified as KindInt and anything else as KindFloat.
func (b *Bridge) Kind() Kind {
	return kindOf(b.L.Get(-1))
}

func kindOf(v lua.LValue) Kind {
	if v == voidValue {
		return KindVoid
	}
	switch vv := v.(type) {
	case *lua.LNilType:
		return KindNull
	case lua.LBool:
		return KindBool
	case lua.LNumber:
		f := float64(vv)
		if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
			return KindInt
		}
		return KindFloat
	case lua.LString:
		return KindString
	case *lua.LTable:
		if isSequenceTable(vv) {
			return KindSequence
		}
		return KindMapping
	default:
		return KindMapping
	}
}

// Length returns the length of a sequence value per §3's rules: an
// optional user length attribute (__len metamethod), else an "n" field,
// else presence of index 1 distinguishes sequence from mapping; an empty
// table is an empty sequence.
func (b *Bridge) Length() (n int, isSequence bool) {
	tbl, ok := b.L.Get(-1).(*lua.LTable)
	if !ok {
		return 0, false
	}
	return tableLength(b.L, tbl)
}

func isSequenceTable(tbl *lua.LTable) bool {
	n, ok := tableLength(nil, tbl)
	return ok && n >= 0
}

// tableLength implements yl_lua_get_length (original_source/lua_helpers.c)
// against a gopher-lua table. L may be nil when no metamethod call is
// needed (the common case).
func tableLength(L *lua.LState, tbl *lua.LTable) (int, bool) {
	if mt := tbl.Metatable; mt != lua.LNil {
		if mtTbl, ok := mt.(*lua.LTable); ok {
			if lenFn := mtTbl.RawGetString("__len"); lenFn != lua.LNil {
				if fn, ok := lenFn.(*lua.LFunction); ok && L != nil {
					L.Push(fn)
					L.Push(tbl)
					if err := L.PCall(1, 1, nil); err == nil {
						if num, ok := L.Get(-1).(lua.LNumber); ok {
							L.Pop(1)
							return int(num), true
						}
						L.Pop(1)
					}
				}
			}
			return 0, false // has a metatable with no usable __len: a mapping.
		}
	}

	if n := tbl.RawGetString("n"); n != lua.LNil {
		if num, ok := n.(lua.LNumber); ok {
			return int(num), true
		}
	}

	if first := tbl.RawGetInt(1); first != lua.LNil {
		return tbl.Len(), true
	}

	// Fully empty table: treat as an empty sequence.
	if isTableEmpty(tbl) {
		return 0, true
	}

	return 0, false
}

func isTableEmpty(tbl *lua.LTable) bool {
	k, _ := tbl.Next(lua.LNil)
	return k == lua.LNil
}

// IterateSequence returns the value at 1-based index i of the top-of-stack
// sequence, pushing it onto the stack.
func (b *Bridge) IterateSequence(i int) {
	tbl := b.L.Get(-1).(*lua.LTable)
	b.L.Push(tbl.RawGetInt(i))
}

// IterateMapping returns all key/value pairs of the top-of-stack mapping.
// Keys and values are returned as LValue handles the caller can push back
// onto the stack (via PushKey/PushMappingValue) to introspect with Kind/As*.
func (b *Bridge) IterateMapping() []KeyValue {
	tbl := b.L.Get(-1).(*lua.LTable)
	var out []KeyValue
	tbl.ForEach(func(k, v lua.LValue) {
		out = append(out, KeyValue{key: k, value: v})
	})
	return out
}

// KeyValue is one entry of a mapping, as returned by IterateMapping.
type KeyValue struct {
	key   lua.LValue
	value lua.LValue
}

// PushKey pushes kv's key onto the stack.
func (b *Bridge) PushKey(kv KeyValue) { b.L.Push(kv.key) }

// PushMappingValue pushes kv's value onto the stack.
func (b *Bridge) PushMappingValue(kv KeyValue) { b.L.Push(kv.value) }

// AsString returns the top-of-stack value's bytes (valid when Kind ==
// KindString).
func (b *Bridge) AsString() []byte {
	return []byte(lua.LVAsString(b.L.Get(-1)))
}

// AsBool returns the top-of-stack value as a bool.
func (b *Bridge) AsBool() bool {
	return bool(lua.LVAsBool(b.L.Get(-1)))
}

// AsInt returns the top-of-stack value as an int64.
func (b *Bridge) AsInt() int64 {
	n, _ := b.L.Get(-1).(lua.LNumber)
	return int64(n)
}

// AsFloat returns the top-of-stack value as a float64.
func (b *Bridge) AsFloat() float64 {
	n, _ := b.L.Get(-1).(lua.LNumber)
	return float64(n)
}

// Pop discards n values from the top of the stack, used on failure paths
// per §5's resource discipline (everything above the pre-call base is
// released except the error message itself).
func (b *Bridge) Pop(n int) {
	b.L.Pop(n)
}

// StackTop returns the current size of the expression stack, for scoped
// acquisition per §5: callers record the top before an operation and pop
// back down to base+1 on normal exit.
func (b *Bridge) StackTop() int {
	return b.L.GetTop()
}

// SetTop truncates (or extends with nils) the stack to the given size.
func (b *Bridge) SetTop(n int) {
	b.L.SetTop(n)
}

// Less applies the cross-type comparator of §4.4: same-kind values compare
// with the runtime's less-than operator; different-kind values compare by
// a stable kind-tag order. The stack is not touched.
func (b *Bridge) Less(a, b2 lua.LValue) bool {
	ka, kb := kindOf(a), kindOf(b2)
	if ka != kb {
		return ka < kb
	}
	switch ka {
	case KindString:
		return string(a.(lua.LString)) < string(b2.(lua.LString))
	case KindInt, KindFloat:
		return float64(a.(lua.LNumber)) < float64(b2.(lua.LNumber))
	case KindBool:
		return !bool(a.(lua.LBool)) && bool(b2.(lua.LBool))
	default:
		return false
	}
}

// SortMappingEntries orders entries by the cross-type comparator of §4.4:
// same-kind keys compare with the runtime's less-than; different-kind
// keys compare by kind tag. The sort is stable.
func (b *Bridge) SortMappingEntries(entries []KeyValue) {
	sort.SliceStable(entries, func(i, j int) bool {
		return b.Less(entries[i].key, entries[j].key)
	})
}

// SetGlobal injects a global binding, used by the test harness's
// !testcases preamble (§4.6) to set per-testcase variables before
// evaluating the next pair.
func (b *Bridge) SetGlobal(name string, v lua.LValue) {
	b.L.SetGlobal(name, v)
}

// Handle is an opaque reference to a value outside the stack, so callers
// can hold onto several values across operations that would otherwise
// overwrite the stack top. Unlike the stack itself, a Handle's lifetime
// is ordinary Go garbage collection — gopher-lua values are regular Go
// values, not indices into a fixed C-style stack.
type Handle struct {
	v lua.LValue
}

// CaptureTop pops the top-of-stack value and returns a Handle to it.
func (b *Bridge) CaptureTop() Handle {
	v := b.L.Get(-1)
	b.L.Pop(1)
	return Handle{v}
}

// Push pushes a previously-captured Handle's value back onto the stack.
func (b *Bridge) Push(h Handle) {
	b.L.Push(h.v)
}

// ApplyGlobalsFrom pushes h and installs its entries as globals via
// BindGlobalsFromMapping, used once per test pair by the harness's
// !testcases preamble (§4.6).
func (b *Bridge) ApplyGlobalsFrom(h Handle, pos errs.Position) *errs.Error {
	b.Push(h)
	err := b.BindGlobalsFromMapping(pos)
	b.Pop(1)
	return err
}

// BindGlobalsFromMapping treats the value on top of the stack as a
// mapping and installs each entry as a global variable, the key
// converted to a string. Used by the test harness's !testcases preamble
// (§4.6) to inject one test case's variable bindings before evaluating
// the next pair. Reports errs.NotImplemented if the top-of-stack value is
// not a mapping, or if any key is not a string.
func (b *Bridge) BindGlobalsFromMapping(pos errs.Position) *errs.Error {
	if b.Kind() != KindMapping {
		return errs.New(errs.NotImplemented, pos, "while binding testcases globals", "a testcases entry must be a mapping of variable names to values")
	}
	entries := b.IterateMapping()
	for _, kv := range entries {
		if _, ok := kv.key.(lua.LString); !ok {
			return errs.New(errs.NotImplemented, pos, "while binding testcases globals", "testcases entry keys must be strings")
		}
		b.SetGlobal(string(kv.key.(lua.LString)), kv.value)
	}
	return nil
}
