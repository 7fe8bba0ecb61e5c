package core_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sksmith/video-shoppe/core"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantKind     core.Kind
		wantCode     string
		wantNotFound bool
	}{
		{name: "validation", err: core.Validation("InvalidKind", "bad kind"), wantKind: core.KindValidation, wantCode: "InvalidKind"},
		{name: "not found", err: core.NotFound("ItemNotFound", "no item"), wantKind: core.KindNotFound, wantCode: "ItemNotFound", wantNotFound: true},
		{name: "conflict", err: core.Conflict("AlreadyReturned", "returned"), wantKind: core.KindConflict, wantCode: "AlreadyReturned"},
		{name: "auth", err: core.Unauthorized("Forbidden", "no"), wantKind: core.KindAuth, wantCode: "Forbidden"},
		{name: "consistency", err: core.Consistency("CommitOutcomeUnknown", "lost", nil, errors.New("conn reset")), wantKind: core.KindConsistency, wantCode: "CommitOutcomeUnknown"},
		{name: "wrapped", err: errors.WithMessage(core.NotFound("RentalNotFound", "no rental"), "getting rental"), wantKind: core.KindNotFound, wantCode: "RentalNotFound", wantNotFound: true},
		{name: "plain", err: errors.New("boom"), wantKind: "", wantCode: ""},
		{name: "sentinel", err: errors.WithStack(core.ErrNotFound), wantKind: "", wantCode: "", wantNotFound: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := core.KindOf(test.err); got != test.wantKind {
				t.Errorf("kind got=%s want=%s", got, test.wantKind)
			}
			if got := core.CodeOf(test.err); got != test.wantCode {
				t.Errorf("code got=%s want=%s", got, test.wantCode)
			}
			if got := errors.Is(test.err, core.ErrNotFound); got != test.wantNotFound {
				t.Errorf("is not found got=%v want=%v", got, test.wantNotFound)
			}
		})
	}
}

func TestConsistencyErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := core.Consistency("CommitOutcomeUnknown", "commit outcome unknown", map[string]interface{}{"itemId": uint64(7)}, cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be reachable")
	}
	e, ok := core.AsError(err)
	if !ok {
		t.Fatal("expected a domain error")
	}
	if e.Detail["itemId"] != uint64(7) {
		t.Errorf("detail got=%v", e.Detail)
	}
	if e.Error() != "commit outcome unknown: connection reset" {
		t.Errorf("message got=%s", e.Error())
	}
}
