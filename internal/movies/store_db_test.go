package movies

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify(t *testing.T) {
	missing := fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01", Message: `relation "movies" does not exist`})
	if err := classify(missing); !errors.Is(err, ErrSchemaMissing) {
		t.Fatalf("err=%v", err)
	}

	other := errors.New("connection reset")
	if err := classify(other); err != other {
		t.Fatalf("err=%v", err)
	}
}
