/*
Package domain contains the core domain models shared by every cracklens component.

It defines the durable memory records, the plan steps consumed by the execution engine,
the single tagged result type returned by every tool, and the lineage objects tracked
by the object store. This package is kept pure and free of I/O and persistence concerns.

# Key Entities

  - Record: an append-only entry describing the outcome of a task for a subject.
  - CacheKey: the (subject, task, configuration) triple used for idempotence checks.
  - Step: one unit of work in a plan (tool, subject, action, args).
  - ToolResult: what a tool returns (status, summary, outputs, visualizations, error).
  - StepResult: what the engine reports for each step of a plan.
  - Object: the lineage of one input image (original, mask, overlay paths and status tags).
*/
package domain
