// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

/*
Package main is the entry point for the CSVIngest server.

CSVIngest reads name,age,email CSV files into DuckDB from two sources: a
multipart upload at POST /api/csv/upload, and a local file re-read on a
fixed interval by the scheduler. The scheduler never overlaps runs and
disables itself after repeated missing-file failures.

# Application Architecture

	RootSupervisor ("csvingest")
	├── DataSupervisor ("data-layer")
	│   └── CSV scheduler
	├── MessagingSupervisor ("messaging-layer")
	│   └── Ingestion event consumer (in-process pub/sub only)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Logging: zerolog
 3. Database: DuckDB with the users table
 4. Run store: BadgerDB, or memory when RUNSTORE_PATH is empty
 5. Events: Watermill over NATS, or GoChannel when NATS_URL is empty
 6. Scheduler gate, scheduler and HTTP router
 7. Supervisor tree

# Signal Handling

SIGINT and SIGTERM cancel the tree. The HTTP server drains, the scheduler
waits for an in-flight run, the event publisher and run store close, and
DuckDB checkpoints before exit.

# Example Usage

	export SCHEDULER_PATH=/data/users.csv
	export DUCKDB_PATH=/data/csvingest.duckdb
	./csvingest

	curl -F "file=@users.csv;type=text/csv" http://localhost:8080/api/csv/upload
*/
package main
