// Package sample holds the data model shared by the convert and upload
// pipelines: sample files, conversion recipes, device presets, padding
// plans, the ordered directory walk and the typed errors both pipelines
// report.
package sample
