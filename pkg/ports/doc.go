/*
Package ports defines the driven ports (interfaces) for the cracklens engine.

These interfaces decouple the memory controller from concrete storage, allowing
the same memoization logic to run over a local JSONL file, Redis, SQLite or memory.

# Key Interfaces

  - RecordLog: the append-only persisted log of memory records.
  - DistributedLocker: provides distributed locking for check-then-append across processes.
  - PlanLibrary: saved plans that can be run by ID.
*/
package ports
