// Package graph wraps the external graph engine: episode creation with
// delegated entity extraction, deletion by episode, and relationship and
// temporal fact queries, all backed by Neo4j.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// ClientConfig holds Neo4j connection settings.
type ClientConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// Client wraps the Neo4j driver with the target database name.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logrus.Logger
}

const connectTimeout = 10 * time.Second

// NewClient connects to Neo4j, verifies connectivity, and applies the
// uniqueness constraints the engine relies on (best-effort).
func NewClient(ctx context.Context, cfg ClientConfig, log *logrus.Logger) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.SocketConnectTimeout = connectTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	c := &Client{driver: driver, database: cfg.Database, log: log}
	c.initSchema(ctx)

	return c, nil
}

// initSchema applies uniqueness constraints. Failures are logged and
// tolerated; MERGE semantics keep the graph usable without them.
func (c *Client) initSchema(ctx context.Context) {
	session := c.session(ctx)
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT episode_name_unique IF NOT EXISTS FOR (e:Episode) REQUIRE e.name IS UNIQUE`,
		`CREATE CONSTRAINT entity_group_name_unique IF NOT EXISTS FOR (n:Entity) REQUIRE (n.group_id, n.name_norm) IS UNIQUE`,
	}

	for _, q := range stmts {
		if res, err := session.Run(ctx, q, nil); err != nil {
			c.log.WithError(err).Warn("neo4j schema init failed (continuing)")
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

// session opens a write-mode session against the configured database.
func (c *Client) session(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
}

// readSession opens a read-mode session against the configured database.
func (c *Client) readSession(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.database,
	})
}

// Ping verifies connectivity for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close shuts down the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}

	return c.driver.Close(ctx)
}
