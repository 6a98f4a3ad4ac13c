package dflow

import (
	"context"
	"testing"
)

func TestClassifyCodeHeuristic(t *testing.T) {
	cases := []struct {
		body string
		want Variant
	}{
		{"return 1;", VariantSync},
		{"const v = await fetch(); return v;", VariantAsync},
		{"yield 1;", VariantGenerator},
		{"const v = await fetch(); yield v;", VariantAsyncGenerator},
	}
	for _, c := range cases {
		if got := ClassifyCode(c.body); got != c.want {
			t.Errorf("ClassifyCode(%q) = %v, want %v", c.body, got, c.want)
		}
	}
}

func TestJoinCode(t *testing.T) {
	got := JoinCode([]string{"a", "b", "c"})
	if got != "a;b;c" {
		t.Errorf("JoinCode = %q, want %q", got, "a;b;c")
	}
}

func TestRegistryCompilerCompilesPlain(t *testing.T) {
	r := NewRegistryCompiler()
	r.RegisterPlain("return 1;", constFunc(1))

	fn, err := r.CompilePlain(nil, "return 1;")
	if err != nil {
		t.Fatalf("CompilePlain: %v", err)
	}
	v, err := fn(context.Background(), nil, nil)
	if err != nil || v != 1 {
		t.Errorf("fn() = %v, %v, want 1, nil", v, err)
	}
}

func TestRegistryCompilerFailsForUnregisteredCode(t *testing.T) {
	r := NewRegistryCompiler()
	_, err := r.CompilePlain(nil, "never registered")
	if err == nil {
		t.Fatal("expected error for unregistered code")
	}
}

func TestSetNodeFuncWithoutCompilerFails(t *testing.T) {
	e := NewEngine("c")
	err := e.SetNodeFunc("f", nil, "return 1;")
	if _, ok := err.(*errNoCompiler); !ok {
		t.Fatalf("expected *errNoCompiler, got %v", err)
	}
}

func TestSetNodeFuncSelectsAsyncFactory(t *testing.T) {
	r := NewRegistryCompiler()
	r.RegisterAsync("await x()", AsyncFunc(func(ctx context.Context, receiver any, args []any) <-chan AsyncResult {
		ch := make(chan AsyncResult, 1)
		ch <- AsyncResult{Value: 1}
		return ch
	}))
	e := NewEngine("c", WithCompiler(r))

	if err := e.SetNodeFunc("f", nil, "await x()"); err != nil {
		t.Fatalf("SetNodeFunc: %v", err)
	}
	if e.funcs["f"].variant != VariantAsync {
		t.Errorf("variant = %v, want VariantAsync", e.funcs["f"].variant)
	}
}
