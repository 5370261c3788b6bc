// Package common holds test infrastructure shared by integration tests that
// need real backing services.
package common

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	surreal "github.com/surrealdb/surrealdb.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	surrealUser      = "root"
	surrealPass      = "root"
	defaultImage     = "surrealdb/surrealdb:v3.0.0"
	surrealTestNS    = "stance_test"
	surrealEnableEnv = "STANCE_TEST_SURREALDB"
)

var (
	surrealOnce      sync.Once
	surrealContainer *SurrealDBContainer
	surrealError     error
)

// SurrealDBContainer is one SurrealDB instance shared by every test in the
// process.
type SurrealDBContainer struct {
	container testcontainers.Container
	address   string
}

// RequireSurrealDB skips t unless STANCE_TEST_SURREALDB=1. With
// STANCE_TEST_SURREALDB_ADDRESS set, that server is used instead of a
// container.
func RequireSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()
	if os.Getenv(surrealEnableEnv) != "1" {
		t.Skipf("set %s=1 to run SurrealDB integration tests", surrealEnableEnv)
	}
	if addr := os.Getenv(surrealEnableEnv + "_ADDRESS"); addr != "" {
		return &SurrealDBContainer{address: addr}
	}

	surrealOnce.Do(func() {
		surrealContainer, surrealError = startSurrealDB(context.Background())
	})
	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}
	return surrealContainer
}

func startSurrealDB(ctx context.Context) (*SurrealDBContainer, error) {
	image := os.Getenv(surrealEnableEnv + "_IMAGE")
	if image == "" {
		image = defaultImage
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", surrealUser, "--pass", surrealPass},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get SurrealDB host: %w", err)
	}
	port, err := container.MappedPort(ctx, "8000/tcp")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get SurrealDB port: %w", err)
	}

	return &SurrealDBContainer{
		container: container,
		address:   fmt.Sprintf("ws://%s:%s/rpc", host, port.Port()),
	}, nil
}

// Address returns the WebSocket RPC address.
func (c *SurrealDBContainer) Address() string {
	return c.address
}

// Credentials returns the root user and password the container starts with.
func (c *SurrealDBContainer) Credentials() (string, string) {
	return surrealUser, surrealPass
}

// Connect signs in and selects a database unique to t, so tests never see
// each other's rows. The connection closes with the test.
func (c *SurrealDBContainer) Connect(t *testing.T) (*surreal.DB, string) {
	t.Helper()
	ctx := context.Background()

	db, err := surreal.New(c.address)
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}
	if _, err := db.SignIn(ctx, map[string]interface{}{"user": surrealUser, "pass": surrealPass}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}

	// Subtest names contain "/", which SurrealDB rejects in database names
	sanitized := strings.NewReplacer("/", "_", " ", "_", "-", "_").Replace(t.Name())
	database := fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000)
	if err := db.Use(ctx, surrealTestNS, database); err != nil {
		t.Fatalf("select namespace/database: %v", err)
	}

	t.Cleanup(func() { db.Close(context.Background()) })
	return db, database
}

// Namespace is the namespace every test database lives in.
func Namespace() string { return surrealTestNS }

// Cleanup terminates the container. Call from TestMain if needed.
func (c *SurrealDBContainer) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}
