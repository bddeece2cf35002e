package ocr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// stubRunner answers commands by binary name.
type stubRunner struct {
	mu       sync.Mutex
	calls    []string
	handlers map[string]func(stdin []byte, args []string) ([]byte, error)
}

func newStubRunner() *stubRunner {
	return &stubRunner{handlers: map[string]func([]byte, []string) ([]byte, error){}}
}

func (s *stubRunner) on(name string, fn func(stdin []byte, args []string) ([]byte, error)) *stubRunner {
	s.handlers[name] = fn
	return s
}

func (s *stubRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name+" "+strings.Join(args, " "))
	fn, ok := s.handlers[name]
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, errors.New("signal: killed")
	}
	if !ok {
		return nil, []byte(name + ": command not found"), errors.New("exit status 127")
	}
	out, err := fn(stdin, args)
	if err != nil {
		return nil, []byte(err.Error()), errors.New("exit status 1")
	}
	return out, nil, nil
}

func (s *stubRunner) callsTo(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, name+" ") {
			n++
		}
	}
	return n
}

func argAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func pdfInfo(pages int) func([]byte, []string) ([]byte, error) {
	return func([]byte, []string) ([]byte, error) {
		return []byte(fmt.Sprintf("Title:          fatura\nPages:          %d\nEncrypted:      no\n", pages)), nil
	}
}

// renderStub returns "p<N>" for the page requested with -f.
func renderStub(_ []byte, args []string) ([]byte, error) {
	return []byte("p" + argAfter(args, "-f")), nil
}

// magickStub prefixes the image bytes with the operation it was asked for.
func magickStub(stdin []byte, args []string) ([]byte, error) {
	if slices.Contains(args, "jpeg:-") {
		return append([]byte("small-"), stdin...), nil
	}
	return append([]byte("gray-"), stdin...), nil
}

func usableText(tag string) string {
	return strings.Repeat("Fatura de eletricidade "+tag+" potencia contratada ", 10)
}

type fakeAnalyzer struct {
	fn func(data []byte, mime string, pages []int32) (string, error)

	mu    sync.Mutex
	pages [][]int32
	mimes []string
}

func (f *fakeAnalyzer) Name() string { return "fake" }

func (f *fakeAnalyzer) Analyze(ctx context.Context, data []byte, mime string, pages []int32) (string, error) {
	f.mu.Lock()
	f.pages = append(f.pages, pages)
	f.mimes = append(f.mimes, mime)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.fn(data, mime, pages)
}

type fakeStrategy struct {
	source Source
	text   string
	err    error
	ran    bool
}

func (f *fakeStrategy) Source() Source { return f.source }

func (f *fakeStrategy) Extract(context.Context, Document) (*Text, error) {
	f.ran = true
	if f.err != nil {
		return nil, f.err
	}
	return &Text{Content: f.text, Source: f.source}, nil
}
