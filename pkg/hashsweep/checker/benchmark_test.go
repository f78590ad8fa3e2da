package checker_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/checker"
)

func createBenchTree(b *testing.B, numFiles int) string {
	b.Helper()
	root := b.TempDir()

	for i := range numFiles {
		dir := filepath.Join(root, fmt.Sprintf("dir%02d", i%16))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.Fatalf("failed to create dir: %v", err)
		}

		size := 4 << 10
		if i%10 == 0 {
			size = 1 << 20
		}
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("file%04d", i)), make([]byte, size), 0o644); err != nil {
			b.Fatalf("failed to write file: %v", err)
		}
	}

	return root
}

func BenchmarkGenerate(b *testing.B) {
	root := createBenchTree(b, 200)

	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			manifestPath := filepath.Join(b.TempDir(), "hashes.txt")
			c, err := checker.New(checker.Options{
				Root:         root,
				ManifestPath: manifestPath,
				Workers:      workers,
				BufferSize:   1 << 20,
			})
			if err != nil {
				b.Fatal(err)
			}

			for b.Loop() {
				if _, err := c.Generate(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
