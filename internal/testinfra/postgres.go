// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// metadataSchema mirrors the tables the orchestrator reads in production.
const metadataSchema = `
CREATE TABLE assets (
    customer        INTEGER NOT NULL,
    space           INTEGER NOT NULL,
    name            TEXT    NOT NULL,
    family          TEXT    NOT NULL,
    channels        TEXT[]  NOT NULL DEFAULT '{}',
    required_roles  TEXT[]  NOT NULL DEFAULT '{}',
    origin_location TEXT    NOT NULL DEFAULT '',
    width           INTEGER,
    height          INTEGER,
    duration_ms     BIGINT,
    media_type      TEXT,
    PRIMARY KEY (customer, space, name)
);

CREATE TABLE thumbnail_sizes (
    customer INTEGER NOT NULL,
    space    INTEGER NOT NULL,
    name     TEXT    NOT NULL,
    width    INTEGER NOT NULL,
    height   INTEGER NOT NULL,
    open     BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE customers (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);
`

// PostgresContainer wraps a disposable Postgres instance carrying the
// orchestrator metadata schema.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
}

// NewPostgresContainer starts Postgres and applies the metadata schema.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("protagonist"),
		tcpostgres.WithUsername("protagonist"),
		tcpostgres.WithPassword("protagonist"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, fmt.Errorf("connection string: %w", err)
	}

	return &PostgresContainer{Container: pg, DSN: dsn}, nil
}

// Schema returns the DDL applied by repository integration tests.
func (p *PostgresContainer) Schema() string {
	return metadataSchema
}
