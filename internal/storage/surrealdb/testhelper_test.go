package surrealdb

import (
	"testing"

	surreal "github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/stance/internal/common"
	tcommon "github.com/bobmcallan/stance/tests/common"
)

// testDB returns a connection to an isolated database. Skipped unless
// STANCE_TEST_SURREALDB=1.
func testDB(t *testing.T) *surreal.DB {
	t.Helper()
	db, _ := tcommon.RequireSurrealDB(t).Connect(t)
	return db
}

func testLogger() *common.Logger {
	return common.NewSilentLogger()
}
