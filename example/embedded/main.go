// Example: Using the SQL gateway as an embedded library
//
// This example wires the gateway components in-process, without the HTTP
// server, against an in-memory DuckDB profile.
//
// Run this example:
//
//	go run ./example/embedded
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/nnnkkk7/sqlgateway/pkg/connection"
	"github.com/nnnkkk7/sqlgateway/pkg/pool"
	"github.com/nnnkkk7/sqlgateway/pkg/profile"
	"github.com/nnnkkk7/sqlgateway/pkg/query"
)

func main() {
	fmt.Println("=== SQL Gateway Embedded Example ===")

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	profiles := profile.Load(map[string]string{
		"default.driver":   "org.duckdb.DuckDBDriver",
		"default.url":      "jdbc:duckdb:",
		"analytics.driver": "duckdb",
		"analytics.url":    "jdbc:duckdb:",
		"common.max_count": "3",
	}, logger)

	registry := query.NewRegistry(pool.New(profiles, connection.NewDrivers(), logger), logger)
	defer func() {
		if err := registry.Shutdown(); err != nil {
			log.Printf("Failed to shut down: %v", err)
		}
	}()
	executor := query.NewExecutor(registry, profiles, logger)

	ctx := context.Background()
	run := func(title, executionID, text string) {
		fmt.Printf("\n-- %s [%s]\n", title, executionID)
		result := executor.Interpret(ctx, text, executionID)
		if !result.Succeeded() {
			fmt.Printf("   ERROR %s: %s\n", result.Error.Code, result.Message)
			return
		}
		fmt.Printf("   %s\n%s", result.Type, result.Message)
	}

	// Statements without a "(profile)" line go to the default profile.
	run("Create table", "demo", "CREATE TABLE products (id INTEGER, name VARCHAR, price DECIMAL(10,2))")
	run("Insert rows", "demo", `INSERT INTO products VALUES
		(1, 'Laptop', 999.99),
		(2, 'Mouse', 29.99),
		(3, 'Keyboard', 79.99),
		(4, 'Monitor', 299.99)`)

	// common.max_count caps the table at three rows.
	run("Query with row cap", "demo", "SELECT id, name, price FROM products ORDER BY id")
	run("Explain", "demo", "EXPLAIN SELECT * FROM products")

	// A "(profile)" first line routes the rest of the text to that profile.
	run("Other profile", "report", "(analytics)\nSELECT 42 AS answer")
	run("Unknown profile", "report", "(missing)\nSELECT 1")

	fmt.Println("\n-- Bindings")
	for _, b := range registry.Bindings() {
		fmt.Printf("   %s -> %s\n", b.ExecutionID, b.ProfileKey)
	}

	fmt.Println("\n=== Example completed ===")
}
