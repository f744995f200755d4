package upseller

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"salesledger/internal/accessor"
	"salesledger/internal/assert"
	"salesledger/internal/telemetry"
	"slices"
)

const report_snapshot_read_page = "snapshot.read-page"

// SnapshotAccessor replays a directory of saved listing pages, one .html file
// per page in lexical order.
type SnapshotAccessor struct {
	pages   []string
	current int
	tel     telemetry.API
}

var _ accessor.Accessor = (*SnapshotAccessor)(nil)

func NewSnapshotAccessor(dir string, tel telemetry.API) (*SnapshotAccessor, error) {
	assert.NotNil(tel)

	pages, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no .html pages in %s", dir)
	}
	slices.Sort(pages)

	return &SnapshotAccessor{
		pages: pages,
		tel:   telemetry.NewScopedAPI("upseller", tel),
	}, nil
}

func (a *SnapshotAccessor) RowBlocks(ctx context.Context) ([]accessor.RowBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := a.pages[a.current]
	raw, err := os.ReadFile(path)
	if err != nil {
		a.tel.ReportBroken(report_snapshot_read_page, err, path)
		return nil, err
	}
	page, err := ParsePage(bytes.NewReader(raw))
	if err != nil {
		a.tel.ReportBroken(report_snapshot_read_page, err, path)
		return nil, err
	}
	a.tel.ReportDebug("parsed snapshot page", path, page.Layout, len(page.Blocks))
	return page.Blocks, nil
}

func (a *SnapshotAccessor) AdvancePage(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if a.current+1 >= len(a.pages) {
		return false, nil
	}
	a.current++
	return true, nil
}

func (a *SnapshotAccessor) FirstPage(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	a.current = 0
	return true, nil
}
