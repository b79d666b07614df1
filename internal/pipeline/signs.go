package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/media"
)

var errNoStore = errors.New("reference store is not configured")

// AddSign creates a reference sign from an uploaded demonstration video.
// The name is checked for duplicates before the video is described, and
// nothing is stored when describing fails. The cache is rebuilt before
// returning.
func (o *Orchestrator) AddSign(ctx context.Context, name string, video []byte, filename string) (*database.StoredSign, error) {
	if o.signs == nil {
		return nil, errNoStore
	}
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	existing, err := o.signs.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checking sign %q: %w", name, err)
	}
	if existing != nil {
		return nil, database.ErrSignExists
	}

	description, err := o.describer.Describe(ctx, video, filename)
	if err != nil {
		return nil, err
	}

	videoPath, err := o.media.Save(name, media.VideoExt(filename), video)
	if err != nil {
		return nil, err
	}

	sign := &database.StoredSign{Name: name, Description: description, VideoPath: videoPath}
	if err := o.signs.Create(ctx, sign); err != nil {
		o.removeVideo(videoPath)
		return nil, err
	}

	if _, err := o.RebuildCache(context.WithoutCancel(ctx)); err != nil {
		return sign, fmt.Errorf("sign %q saved but rebuilding the description cache failed: %w", name, err)
	}
	return sign, nil
}

// ReplaceSign updates the sign called name or creates it when missing. The
// video always replaces the stored one. When description is empty the
// video is described first.
func (o *Orchestrator) ReplaceSign(ctx context.Context, name string, video []byte, filename, description string) (*database.StoredSign, bool, error) {
	if o.signs == nil {
		return nil, false, errNoStore
	}
	name, err := NormalizeName(name)
	if err != nil {
		return nil, false, err
	}

	if description == "" {
		description, err = o.describer.Describe(ctx, video, filename)
		if err != nil {
			return nil, false, err
		}
	}

	existing, err := o.signs.GetByName(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("checking sign %q: %w", name, err)
	}

	videoPath, err := o.media.Save(name, media.VideoExt(filename), video)
	if err != nil {
		return nil, false, err
	}

	created := existing == nil
	var sign *database.StoredSign
	if created {
		sign = &database.StoredSign{Name: name, Description: description, VideoPath: videoPath}
		err = o.signs.Create(ctx, sign)
	} else {
		sign = existing
		oldVideo := sign.VideoPath
		sign.Description = description
		sign.VideoPath = videoPath
		err = o.signs.Update(ctx, sign)
		if err == nil && oldVideo != "" && oldVideo != videoPath {
			o.removeVideo(oldVideo)
		}
	}
	if err != nil {
		o.removeVideo(videoPath)
		return nil, false, err
	}

	if _, err := o.RebuildCache(context.WithoutCancel(ctx)); err != nil {
		return sign, created, fmt.Errorf("sign %q saved but rebuilding the description cache failed: %w", name, err)
	}
	return sign, created, nil
}

// DeleteSign removes the sign with id together with its video file and
// rebuilds the cache.
func (o *Orchestrator) DeleteSign(ctx context.Context, id int64) (*database.StoredSign, error) {
	if o.signs == nil {
		return nil, errNoStore
	}
	sign, err := o.signs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading sign %d: %w", id, err)
	}
	if sign == nil {
		return nil, database.ErrNotFound
	}

	if err := o.signs.Delete(ctx, id); err != nil {
		return nil, err
	}
	if sign.VideoPath != "" {
		o.removeVideo(sign.VideoPath)
	}

	if _, err := o.RebuildCache(context.WithoutCancel(ctx)); err != nil {
		return sign, fmt.Errorf("sign %q deleted but rebuilding the description cache failed: %w", sign.Name, err)
	}
	return sign, nil
}

func (o *Orchestrator) removeVideo(filename string) {
	if err := o.media.Delete(filename); err != nil {
		log.Printf("removing video %s: %v", filename, err)
	}
}
