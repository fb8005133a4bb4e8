// Package tools implements the crack analysis tools behind the registry contract.
//
// Tools do not compute anything heavy themselves. Segmentation, geometry, retrieval
// and answer generation are collaborators injected through Deps, so the same tools
// run against external processes in production and against fakes in tests.
// RasterGeometry and ThresholdSegmenter are simple built-in collaborators for
// environments without the model toolchain.
package tools
