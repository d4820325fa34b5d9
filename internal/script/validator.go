package script

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/rxdata/internal/model"
)

// DefaultTimeout bounds a single validate call.
const DefaultTimeout = time.Second

// Errors for validator scripts.
var (
	// ErrNoValidateFunc is returned when a script defines no validate function.
	ErrNoValidateFunc = errors.New("script does not define a validate function")

	// ErrTimeout is returned when a validate call exceeds its timeout.
	ErrTimeout = errors.New("script timed out")

	// ErrClosed is returned by a closed validator.
	ErrClosed = errors.New("validator closed")
)

// DefaultMessage is the rejection message for results that carry none,
// such as true or an empty table.
const DefaultMessage = "invalid attributes"

// Rejection is the error a validator returns for invalid attributes.
type Rejection struct {
	// Validator is the name of the rejecting script.
	Validator string

	// Message is the message returned by the script, if any.
	Message string

	// Fields maps attribute keys to messages when the script returned a table.
	Fields map[string]any
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	if r.Message != "" {
		return r.Validator + ": " + r.Message
	}
	keys := slices.Sorted(maps.Keys(r.Fields))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, r.Fields[k])
	}
	return r.Validator + ": " + strings.Join(parts, ", ")
}

// Validator is a compiled validation script. It is safe for concurrent use;
// calls are serialised on one Lua state.
type Validator struct {
	name    string
	timeout time.Duration

	mu     sync.Mutex
	L      *lua.LState
	fn     *lua.LFunction
	closed bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithTimeout bounds each validate call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// NewValidator compiles source, which must define a global validate function.
func NewValidator(name, source string, opts ...Option) (*Validator, error) {
	v := &Validator{name: name, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(v)
	}

	L := newState()
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	L.SetContext(ctx)
	err := L.DoString(source)
	L.RemoveContext()
	if err != nil {
		L.Close()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", name, ErrTimeout)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	fn, ok := L.GetGlobal("validate").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("%s: %w", name, ErrNoValidateFunc)
	}
	v.L = L
	v.fn = fn
	return v, nil
}

// LoadValidator compiles the script at path, named after the file.
func LoadValidator(path string, opts ...Option) (*Validator, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load validator: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewValidator(name, string(src), opts...)
}

// Name returns the validator name.
func (v *Validator) Name() string { return v.name }

// Validate runs the script against attrs. It returns nil when the script
// accepts them, a *Rejection when it rejects them, and another error when
// the script fails.
func (v *Validator) Validate(attrs model.Attributes, _ *model.Options) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	v.L.SetContext(ctx)
	defer v.L.RemoveContext()

	top := v.L.GetTop()
	defer func() {
		v.L.SetTop(top)
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: lua panic: %v", v.name, r)
		}
	}()

	v.L.Push(v.fn)
	v.L.Push(toLua(v.L, attrs))
	if callErr := v.L.PCall(1, 1, nil); callErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", v.name, ErrTimeout)
		}
		return fmt.Errorf("%s: %w", v.name, callErr)
	}
	return v.interpret(v.L.Get(-1))
}

// interpret converts the script's return value into a validation result.
// Only nil and false mean valid; any other value rejects the attributes.
func (v *Validator) interpret(ret lua.LValue) error {
	switch r := ret.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		if !bool(r) {
			return nil
		}
		return &Rejection{Validator: v.name, Message: DefaultMessage}
	case lua.LString:
		return &Rejection{Validator: v.name, Message: string(r)}
	case *lua.LTable:
		if fields, ok := toGo(r).(map[string]any); ok && len(fields) > 0 {
			return &Rejection{Validator: v.name, Fields: fields}
		}
		if r.Len() == 0 {
			return &Rejection{Validator: v.name, Message: DefaultMessage}
		}
		return &Rejection{Validator: v.name, Message: fmt.Sprint(toGo(r))}
	default:
		return &Rejection{Validator: v.name, Message: ret.String()}
	}
}

// Func returns the validator as a model.Validator.
func (v *Validator) Func() model.Validator {
	return v.Validate
}

// Close releases the Lua state.
func (v *Validator) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.L.Close()
	v.closed = true
	return nil
}
