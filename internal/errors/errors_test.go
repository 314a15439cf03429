package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestIsMatchesOnKind(t *testing.T) {
	err := HistoryTraversal(fmt.Errorf("bad object"), "abc123")

	if !stderrors.Is(err, ErrHistoryTraversal) {
		t.Error("expected errors.Is to match ErrHistoryTraversal")
	}
	if stderrors.Is(err, ErrRepositoryAccess) {
		t.Error("did not expect match against ErrRepositoryAccess")
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := StoreUnavailable(cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestErrorStringIncludesItem(t *testing.T) {
	err := IndexWrite(fmt.Errorf("mapping conflict"), "deadbeef")
	got := err.Error()

	want := "document write failed (deadbeef): mapping conflict"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindRepositoryAccess, "REPOSITORY_ACCESS"},
		{KindHistoryTraversal, "HISTORY_TRAVERSAL"},
		{KindEmbeddingBatch, "EMBEDDING_BATCH"},
		{KindStoreUnavailable, "STORE_UNAVAILABLE"},
		{KindIndexWrite, "INDEX_WRITE"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
