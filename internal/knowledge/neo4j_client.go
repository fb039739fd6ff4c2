package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
)

// Neo4jConfig holds connection configuration for the graph channel's store.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// neo4jClient wraps a driver with the database name and timeout its callers
// need, mirroring the thin connection-pooling wrapper pattern used
// elsewhere for external stateful services.
type neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
}

func newNeo4jClient(cfg Neo4jConfig) (*neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *config.Config) {
			c.MaxConnectionPoolSize = 50
			c.ConnectionAcquisitionTimeout = cfg.Timeout
			c.SocketConnectTimeout = cfg.Timeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("knowledge: failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("knowledge: failed to verify neo4j connectivity: %w", err)
	}

	return &neo4jClient{driver: driver, database: cfg.Database, timeout: cfg.Timeout}, nil
}

func (c *neo4jClient) close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *neo4jClient) executeWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database, AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = session.Close(ctx) }()
	return session.ExecuteWrite(ctx, work)
}

func (c *neo4jClient) executeRead(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database, AccessMode: neo4j.AccessModeRead})
	defer func() { _ = session.Close(ctx) }()
	return session.ExecuteRead(ctx, work)
}

func (c *neo4jClient) verifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}
