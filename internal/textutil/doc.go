// Package textutil holds small text helpers shared by the pipeline, such as
// turning feed titles into safe file names.
package textutil
