package dflow

import "strings"

// Compiler is the code-to-callable boundary described in spec.md §6.1.
// It is an external collaborator: the core never interprets source
// text itself, it only decides WHICH compiler method to call (via
// ClassifyCode) and stores whatever Callable comes back. A host
// language that cannot compile text to a callable at runtime — as is
// idiomatic for Go — should only implement the already-compiled path
// (Engine.SetFunc) and may leave Compiler unset; SetNodeFunc will then
// report a clear error rather than silently no-op.
type Compiler interface {
	CompilePlain(args []string, body string) (SyncFunc, error)
	CompileAsync(args []string, body string) (AsyncFunc, error)
	CompileGenerator(args []string, body string) (GeneratorFunc, error)
	CompileAsyncGenerator(args []string, body string) (AsyncGeneratorFunc, error)
}

// ClassifyCode applies spec.md §6.1's textual heuristic to a source
// body: contains "await" and not "yield" selects async; contains
// "yield" and not "await" selects generator; both selects
// async-generator; neither selects plain.
func ClassifyCode(body string) Variant {
	hasAwait := strings.Contains(body, "await")
	hasYield := strings.Contains(body, "yield")
	switch {
	case hasAwait && hasYield:
		return VariantAsyncGenerator
	case hasAwait:
		return VariantAsync
	case hasYield:
		return VariantGenerator
	default:
		return VariantSync
	}
}

// JoinCode joins a list of source fragments the way spec.md §6.1
// describes multi-string Code: joined with ";".
func JoinCode(code []string) string {
	return strings.Join(code, ";")
}

// errNoCompiler is returned by SetNodeFunc when no Compiler was
// configured on the Engine.
type errNoCompiler struct{ name string }

func (e *errNoCompiler) Error() string {
	return "dflow: no Compiler configured, cannot compile code for node func " + e.name
}

// RegistryCompiler is a reference Compiler: Go cannot turn arbitrary
// text into a callable without an embedded scripting engine (none of
// which appear anywhere in the example corpus), so — per spec.md's own
// design note 9 — this stands in for "a platform-specific collaborator"
// by resolving a Code body to a pre-registered Go closure by name. It
// is intended for tests and small embedded demos, not for arbitrary
// user-supplied text.
type RegistryCompiler struct {
	plain           map[string]SyncFunc
	async           map[string]AsyncFunc
	generator       map[string]GeneratorFunc
	asyncGenerator  map[string]AsyncGeneratorFunc
}

// NewRegistryCompiler creates an empty RegistryCompiler.
func NewRegistryCompiler() *RegistryCompiler {
	return &RegistryCompiler{
		plain:          make(map[string]SyncFunc),
		async:          make(map[string]AsyncFunc),
		generator:      make(map[string]GeneratorFunc),
		asyncGenerator: make(map[string]AsyncGeneratorFunc),
	}
}

// RegisterPlain associates a source body (used verbatim as a lookup
// key) with a Go closure returned for CompilePlain.
func (r *RegistryCompiler) RegisterPlain(body string, fn SyncFunc) {
	r.plain[body] = fn
}

// RegisterAsync associates a source body with a Go closure returned for
// CompileAsync.
func (r *RegistryCompiler) RegisterAsync(body string, fn AsyncFunc) {
	r.async[body] = fn
}

// RegisterGenerator associates a source body with a closure returned
// for CompileGenerator.
func (r *RegistryCompiler) RegisterGenerator(body string, fn GeneratorFunc) {
	r.generator[body] = fn
}

// RegisterAsyncGenerator associates a source body with a closure
// returned for CompileAsyncGenerator.
func (r *RegistryCompiler) RegisterAsyncGenerator(body string, fn AsyncGeneratorFunc) {
	r.asyncGenerator[body] = fn
}

func (r *RegistryCompiler) CompilePlain(args []string, body string) (SyncFunc, error) {
	fn, ok := r.plain[body]
	if !ok {
		return nil, &unregisteredCodeError{body}
	}
	return fn, nil
}

func (r *RegistryCompiler) CompileAsync(args []string, body string) (AsyncFunc, error) {
	fn, ok := r.async[body]
	if !ok {
		return nil, &unregisteredCodeError{body}
	}
	return fn, nil
}

func (r *RegistryCompiler) CompileGenerator(args []string, body string) (GeneratorFunc, error) {
	fn, ok := r.generator[body]
	if !ok {
		return nil, &unregisteredCodeError{body}
	}
	return fn, nil
}

func (r *RegistryCompiler) CompileAsyncGenerator(args []string, body string) (AsyncGeneratorFunc, error) {
	fn, ok := r.asyncGenerator[body]
	if !ok {
		return nil, &unregisteredCodeError{body}
	}
	return fn, nil
}

type unregisteredCodeError struct{ body string }

func (e *unregisteredCodeError) Error() string {
	return "dflow: no closure registered for code " + e.body
}
