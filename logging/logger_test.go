package logging

import (
	"context"
	"testing"
)

type recordingLogger struct {
	fields   []map[string]any
	contexts []context.Context
}

func (r *recordingLogger) Trace(string, ...any) {}
func (r *recordingLogger) Debug(string, ...any) {}
func (r *recordingLogger) Info(string, ...any)  {}
func (r *recordingLogger) Warn(string, ...any)  {}
func (r *recordingLogger) Error(string, ...any) {}
func (r *recordingLogger) Fatal(string, ...any) {}

func (r *recordingLogger) WithFields(fields map[string]any) Logger {
	r.fields = append(r.fields, fields)
	return r
}

func (r *recordingLogger) WithContext(ctx context.Context) Logger {
	r.contexts = append(r.contexts, ctx)
	return r
}

type stubProvider struct {
	requested []string
	logger    Logger
}

func (s *stubProvider) GetLogger(name string) Logger {
	s.requested = append(s.requested, name)
	return s.logger
}

func TestModuleLoggerFallsBackToNoOp(t *testing.T) {
	logger := ModuleLogger(nil, "composer.test")
	if _, ok := logger.(noopLogger); !ok {
		t.Fatalf("expected noopLogger fallback, got %T", logger)
	}
	logger = logger.WithContext(context.Background())
	logger.Debug("noop")
}

func TestModuleLoggerAnnotatesModule(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	SessionLogger(provider).Info("opened")

	if len(provider.requested) != 1 || provider.requested[0] != sessionModule {
		t.Fatalf("expected module %s, got %v", sessionModule, provider.requested)
	}
	if len(rec.fields) != 1 || rec.fields[0]["module"] != sessionModule {
		t.Fatalf("expected module field, got %v", rec.fields)
	}
}

func TestWithFieldsCopiesInput(t *testing.T) {
	rec := &recordingLogger{}
	fields := map[string]any{"doc": "a"}
	WithFields(rec, fields)
	fields["doc"] = "b"
	if rec.fields[0]["doc"] != "a" {
		t.Fatalf("expected fields to be copied, got %v", rec.fields[0])
	}
	if got := WithFields(rec, nil); got != Logger(rec) {
		t.Fatalf("empty fields should return the same logger")
	}
}

func TestOrNoOp(t *testing.T) {
	if _, ok := OrNoOp(nil).(noopLogger); !ok {
		t.Fatalf("expected noop for nil logger")
	}
}
