package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taklabs/coordinator/pkg/fault"
)

func TestAcceptTxError_SerializationFailureIsConflict(t *testing.T) {
	// The losing side of a concurrent acceptance aborts with SQLSTATE
	// 40001 once the winner commits; the caller must see a conflict,
	// not an internal storage fault.
	serErr := &pgconn.PgError{
		Code:    "40001",
		Message: "could not serialize access due to concurrent update",
	}

	for _, err := range []error{
		serErr,
		fmt.Errorf("exec failed: %w", serErr),
	} {
		got := acceptTxError("accept offer: commit", err)
		assert.Equal(t, fault.CodeConflict, fault.CodeOf(got))
		assert.Contains(t, got.Error(), "concurrent acceptance")
	}
}

func TestAcceptTxError_OtherErrorsStayInternal(t *testing.T) {
	for _, err := range []error{
		errors.New("connection reset"),
		&pgconn.PgError{Code: "23503", Message: "foreign key violation"},
	} {
		got := acceptTxError("accept offer: lock request", err)
		assert.Equal(t, fault.CodeInternal, fault.CodeOf(got))
		assert.Contains(t, got.Error(), "accept offer: lock request")
	}
}
