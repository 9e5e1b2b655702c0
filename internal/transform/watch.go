package transform

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/smazurov/volcaprep/internal/hotfolder"
	"github.com/smazurov/volcaprep/internal/logging"
	"github.com/smazurov/volcaprep/internal/sample"
)

// Watch converts the input directory, then keeps converting files created
// or rewritten under it until ctx is cancelled. report receives the result
// of the initial run and of every debounced batch.
func (p *Pipeline) Watch(ctx context.Context, input, outDir string, spec sample.ConversionSpec, debounce time.Duration, report func(*Result)) error {
	info, err := os.Stat(input)
	if err != nil {
		return &sample.InvalidInputError{Path: input, Reason: "does not exist", Cause: err}
	}
	if !info.IsDir() {
		return &sample.InvalidInputError{Path: input, Reason: "watch mode needs a directory"}
	}

	res, err := p.Run(ctx, input, outDir, spec)
	if err != nil {
		return err
	}
	report(res)

	var opts []hotfolder.Option
	if sample.Nested(outDir, input) {
		opts = append(opts, hotfolder.WithIgnore(func(path string) bool {
			return sample.SameDir(path, outDir) || sample.Nested(path, outDir)
		}))
	}
	if debounce > 0 {
		opts = append(opts, hotfolder.WithDebounce(debounce))
	}
	w := hotfolder.New(input, logging.GetLogger("hotfolder"), opts...)

	unsub := w.OnChange(func(paths []string) {
		files := changedFiles(input, paths)
		if len(files) == 0 || ctx.Err() != nil {
			return
		}
		p.logger.Info("New samples in watched folder", "count", len(files))
		res, err := p.convert(ctx, files, outDir, true, spec)
		if err != nil && ctx.Err() == nil {
			p.logger.Error("Watch batch failed", "error", err)
		}
		report(res)
	})
	defer unsub()

	if err := w.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

// changedFiles turns watcher paths into sample files relative to root,
// dropping anything that vanished or is not a regular file.
func changedFiles(root string, paths []string) []sample.File {
	files := make([]sample.File, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		files = append(files, sample.File{Path: path, Rel: filepath.ToSlash(rel), Size: info.Size()})
	}
	return files
}
