/*
Package cracklens orchestrates crack-image analysis tools and remembers what they produced.

A plan is an ordered list of tool steps (segment an image, quantify the crack
geometry, draw overlays, compare metric files, answer from the knowledge base).
The Engine runs plans one step at a time. Every step is checked against memory
first, so a mask or a set of metrics that already exists for the same subject
and pixel scale is returned as a cached result instead of being recomputed. A
failing step never aborts the plan: it becomes an error result for that step.

# Memory

Memory is an append-only log of observations keyed by (subject, task, scale).
The log is replayed on startup and the newest matching record wins. Backends
are pluggable through ports.RecordLog: a JSONL file, an in-memory slice, a
redis list or a sqlite table.

# Usage

	records := file.New("memory/memory_store.jsonl")
	eng, err := cracklens.New(ctx, records)
	if err != nil {
		log.Fatal(err)
	}

	results := eng.Execute(ctx, []domain.Step{
		{Tool: domain.ToolSegment, Args: map[string]any{"image_path": "data/Test_images/img01.jpg"}},
		{Tool: domain.ToolQuantify, Args: map[string]any{"mask_path": "outputs/masks/img01.png"}},
	})

Natural-language requests go through Ask, which turns the text into intents
with a plan.Planner, expands them over the input images and executes the
resulting steps.
*/
package cracklens
