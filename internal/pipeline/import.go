package pipeline

import (
	"context"
	"fmt"

	"github.com/kozaktomas/sign-vision/internal/constants"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/descriptions"
)

// ImportStatus says what happened to one cache entry during an import.
type ImportStatus string

const (
	ImportCreated      ImportStatus = "created"
	ImportUpdated      ImportStatus = "updated"
	ImportMissingVideo ImportStatus = "missing_video"
	ImportFailed       ImportStatus = "failed"
)

// ImportItem is the outcome for one sign.
type ImportItem struct {
	Name   string
	Status ImportStatus
	Err    error
}

// ImportReport summarizes ImportSigns.
type ImportReport struct {
	Items   []ImportItem
	Created int
	Updated int
	Skipped int
}

// Imported is the number of signs created or updated.
func (r *ImportReport) Imported() int {
	return r.Created + r.Updated
}

// ImportSigns loads the description cache and stores every entry whose
// <name>.mp4 exists in the avatars directory. Existing signs get the cached
// description; their video reference is only set when they have none.
// onItem, when not nil, is called after each entry. The cache is rebuilt
// from the store at the end, also when ctx was cancelled part way.
func (o *Orchestrator) ImportSigns(ctx context.Context, onItem func(ImportItem)) (*ImportReport, error) {
	if o.signs == nil {
		return nil, errNoStore
	}

	entries, err := descriptions.Load(o.cachePath)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{}
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		item := o.importEntry(ctx, entry)
		switch item.Status {
		case ImportCreated:
			report.Created++
		case ImportUpdated:
			report.Updated++
		default:
			report.Skipped++
		}
		report.Items = append(report.Items, item)
		if onItem != nil {
			onItem(item)
		}
	}

	if _, err := o.RebuildCache(context.WithoutCancel(ctx)); err != nil {
		return report, fmt.Errorf("rebuilding description cache: %w", err)
	}
	return report, ctx.Err()
}

func (o *Orchestrator) importEntry(ctx context.Context, entry descriptions.Entry) ImportItem {
	item := ImportItem{Name: entry.Name}

	videoFile := entry.Name + constants.AvatarExt
	if !o.media.Exists(videoFile) {
		item.Status = ImportMissingVideo
		return item
	}

	existing, err := o.signs.GetByName(ctx, entry.Name)
	if err != nil {
		item.Status, item.Err = ImportFailed, err
		return item
	}

	if existing == nil {
		sign := &database.StoredSign{Name: entry.Name, Description: entry.Description, VideoPath: videoFile}
		if err := o.signs.Create(ctx, sign); err != nil {
			item.Status, item.Err = ImportFailed, err
			return item
		}
		item.Status = ImportCreated
		return item
	}

	existing.Description = entry.Description
	if existing.VideoPath == "" || !o.media.Exists(existing.VideoPath) {
		existing.VideoPath = videoFile
	}
	if err := o.signs.Update(ctx, existing); err != nil {
		item.Status, item.Err = ImportFailed, err
		return item
	}
	item.Status = ImportUpdated
	return item
}
