// Package chart turns raw metric payloads from the inference API into
// render-ready series.
//
// Payload records (Snapshot, Expanded) decode tolerantly: a section that is
// null, missing or malformed decodes to an empty table and is noted in
// Snapshot.Malformed instead of failing the whole snapshot. The transforms
// (ToPieSeries, ToStackedSeries) are pure and never fail; empty input gives
// an empty series.
//
// Snapshots normally come from the API's get_server_metric endpoint. When a
// server exposes Triton-style Prometheus metrics directly, ParseExposition
// builds the same Snapshot from the text exposition.
package chart
