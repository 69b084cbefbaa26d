// Package checkpoint partitions the roster across workers and persists
// each batch's outcomes durably enough that a crash loses at most the
// in-flight company.
package checkpoint

import "github.com/corpintel/dbd-cli/internal/model"

// Partition splits companies into contiguous chunks, one per worker. The
// assignment is static: resuming with the same roster and worker count
// reproduces it exactly, which is what makes batch files resumable without
// distributed locking.
func Partition(companies []model.CompanyInput, workers int) [][]model.CompanyInput {
	if workers < 1 {
		workers = 1
	}
	if workers > len(companies) {
		workers = len(companies)
	}
	if workers == 0 {
		return nil
	}

	chunkSize := len(companies) / workers
	chunks := make([][]model.CompanyInput, 0, workers)
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if i == workers-1 {
			end = len(companies)
		}
		chunks = append(chunks, companies[start:end])
	}
	return chunks
}

// Batches splits one worker's chunk into fixed-size batches, preserving
// input order.
func Batches(chunk []model.CompanyInput, batchSize int) [][]model.CompanyInput {
	if batchSize < 1 {
		batchSize = 1
	}
	var batches [][]model.CompanyInput
	for start := 0; start < len(chunk); start += batchSize {
		end := start + batchSize
		if end > len(chunk) {
			end = len(chunk)
		}
		batches = append(batches, chunk[start:end])
	}
	return batches
}
