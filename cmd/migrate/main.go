// Copyright 2026 The Memberhub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command migrate applies or rolls back the embedded schema migrations.
//
//	migrate [up|down] [database-url]
//
// The URL defaults to DATABASE_URL, which may come from a .env file.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/memberhub/memberhub/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	direction := postgres.MigrateUp
	if len(os.Args) > 1 {
		direction = postgres.MigrateDirection(os.Args[1])
	}
	if direction != postgres.MigrateUp && direction != postgres.MigrateDown {
		log.Fatalf("unknown direction %q, want up or down", direction)
	}

	connStr := os.Getenv("DATABASE_URL")
	if len(os.Args) > 2 {
		connStr = os.Args[2]
	}
	if connStr == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := postgres.New(context.Background(), postgres.Config{URL: connStr})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(direction); err != nil {
		log.Fatalf("Migration %s failed: %v", direction, err)
	}

	version, dirty, err := db.MigrationVersion()
	if err != nil {
		log.Fatalf("Failed to read migration version: %v", err)
	}
	fmt.Printf("✓ Migrated %s (version %d, dirty=%t)\n", direction, version, dirty)
}
