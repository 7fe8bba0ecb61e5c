package testutil

import (
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// CallWatcher records the arguments of every call made to a mock, keyed by the calling function's name.
type CallWatcher struct {
	mu            sync.Mutex
	functionCalls map[string][][]interface{}
}

func NewCallWatcher() *CallWatcher {
	return &CallWatcher{functionCalls: make(map[string][][]interface{})}
}

func (w *CallWatcher) GetCall(funcName string) [][]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, calls := range w.functionCalls {
		if matches(name, funcName) {
			return calls
		}
	}
	return nil
}

func (w *CallWatcher) GetCallCount(funcName string) int {
	return len(w.GetCall(funcName))
}

func (w *CallWatcher) AddCall(args ...interface{}) {
	pc := make([]uintptr, 15)
	n := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:n])
	frame, _ := frames.Next()
	funcName := frame.Function

	w.mu.Lock()
	defer w.mu.Unlock()
	calls := w.functionCalls[funcName]
	w.functionCalls[funcName] = append(calls, args)
}

// VerifyCount fails the test when the mock method named funcName was not called exactly count times.
func (w *CallWatcher) VerifyCount(funcName string, count int, t *testing.T) {
	t.Helper()
	if got := w.GetCallCount(funcName); got != count {
		t.Errorf("call count for %s got=%d want=%d", funcName, got, count)
	}
}

func matches(fullName, funcName string) bool {
	return fullName == funcName || strings.HasSuffix(fullName, "."+funcName)
}

func ConfigLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}
